package cv

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ReadImage 读取图像文件，标识为文件名
func ReadImage(filename string) (*Image, error) {
	return ReadImageAs(filepath.Base(filename), filename)
}

// ReadImageAs 读取图像文件并指定标识
// 保留 alpha 通道；非 8 位图像按三通道彩色重新读取；
// OpenCV 无法读取时回退到 Go 解码器
func ReadImageAs(id, filename string) (*Image, error) {
	mat := gocv.IMRead(filename, gocv.IMReadUnchanged)
	if mat.Empty() {
		mat.Close()
		return decodeFile(id, filename)
	}
	switch mat.Type() {
	case gocv.MatTypeCV8UC1, gocv.MatTypeCV8UC3, gocv.MatTypeCV8UC4:
	default:
		mat.Close()
		mat = gocv.IMRead(filename, gocv.IMReadColor)
		if mat.Empty() {
			mat.Close()
			return nil, fmt.Errorf("无法读取图像: %s", filename)
		}
	}
	return NewImage(id, mat), nil
}

func decodeFile(id, filename string) (*Image, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("无法读取图像: %w", err)
	}
	defer f.Close()

	img, err := DecodeImage(id, f)
	if err != nil {
		return nil, fmt.Errorf("无法读取图像 %s: %w", filename, err)
	}
	return img, nil
}

// DecodeImage 从 reader 解码图像（png/jpeg/gif/bmp/tiff/webp）
func DecodeImage(id string, r io.Reader) (*Image, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("解码图像失败: %w", err)
	}
	if o, ok := img.(interface{ Opaque() bool }); ok && !o.Opaque() {
		if _, gray := img.(*image.Gray); !gray {
			return FromImageRGBA(id, img)
		}
	}
	out, err := FromImage(id, img)
	if err != nil {
		return nil, fmt.Errorf("转换 %s 图像失败: %w", format, err)
	}
	return out, nil
}

// WriteImage 保存图像文件
func WriteImage(filename string, img *Image) error {
	// 确保目录存在
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	if ok := gocv.IMWrite(filename, img.mat); !ok {
		return fmt.Errorf("保存图像失败: %s", filename)
	}
	return nil
}

// LoadImage 加载图像输入
// 支持 string (文件路径)、image.Image、gocv.Mat、*Image，返回的图像由调用方关闭
func LoadImage(id string, input interface{}) (*Image, error) {
	switch v := input.(type) {
	case string:
		img, err := ReadImage(v)
		if err != nil {
			return nil, err
		}
		if id != "" {
			img.id = id
		}
		return img, nil
	case *Image:
		out := v.Clone()
		if id != "" {
			out.id = id
		}
		return out, nil
	case image.Image:
		return FromImage(id, v)
	case gocv.Mat:
		return NewImage(id, v.Clone()), nil
	case *gocv.Mat:
		return NewImage(id, v.Clone()), nil
	default:
		return nil, fmt.Errorf("不支持的图像输入类型: %T", input)
	}
}

var (
	annotateColor = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	labelColor    = color.RGBA{R: 255, G: 0, B: 255, A: 255}
)

// Annotate 在背景图彩色副本上绘制匹配区域和得分，用于调试
func Annotate(background *Image, results []*MatchResult) (*Image, error) {
	out, err := Normalize(background, ColorModeColor)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		rect := r.Rect.ToImageRect()
		if err := gocv.Rectangle(&out.mat, rect, annotateColor, 2); err != nil {
			out.Close()
			return nil, fmt.Errorf("绘制匹配区域失败: %w", err)
		}
		label := fmt.Sprintf("%.2f %s", r.Score, r.TemplateID)
		if err := gocv.PutText(&out.mat, label, rect.Min.Add(image.Pt(4, 12)), gocv.FontHersheyPlain, 1, labelColor, 1); err != nil {
			out.Close()
			return nil, fmt.Errorf("绘制得分失败: %w", err)
		}
	}
	return out, nil
}
