package cv

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Image 带标识的像素缓冲区
// 像素数据由 gocv.Mat 持有 (8 位 BGR / BGRA / 灰度)，宽高和通道数始终与缓冲区一致
type Image struct {
	mat gocv.Mat
	id  string
}

// NewImage 用已有 Mat 创建 Image，Image 接管 Mat 的所有权
func NewImage(id string, mat gocv.Mat) *Image {
	return &Image{mat: mat, id: id}
}

// FromImage 将 image.Image 转换为 Image
// *image.Gray 转为单通道，其余转为三通道 BGR
func FromImage(id string, img image.Image) (*Image, error) {
	if gray, ok := img.(*image.Gray); ok {
		mat, err := gocv.ImageGrayToMatGray(gray)
		if err != nil {
			return nil, fmt.Errorf("灰度图像转换失败: %w", err)
		}
		return NewImage(id, mat), nil
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("图像转换失败: %w", err)
	}
	return NewImage(id, mat), nil
}

// FromImageRGBA 将 image.Image 转换为带 alpha 通道的四通道 Image
func FromImageRGBA(id string, img image.Image) (*Image, error) {
	mat, err := gocv.ImageToMatRGBA(img)
	if err != nil {
		return nil, fmt.Errorf("图像转换失败: %w", err)
	}
	return NewImage(id, mat), nil
}

// ID 返回图像标识
func (i *Image) ID() string {
	return i.id
}

// Width 返回宽度
func (i *Image) Width() int {
	return i.mat.Cols()
}

// Height 返回高度
func (i *Image) Height() int {
	return i.mat.Rows()
}

// Channels 返回通道数
func (i *Image) Channels() int {
	return i.mat.Channels()
}

// Empty 是否为空图像
func (i *Image) Empty() bool {
	return i == nil || i.mat.Empty() || i.Width() == 0 || i.Height() == 0
}

// Mode 返回当前颜色模式，四通道或未知通道数返回 false
func (i *Image) Mode() (ColorMode, bool) {
	switch i.Channels() {
	case 1:
		return ColorModeGray, true
	case 3:
		return ColorModeColor, true
	default:
		return 0, false
	}
}

// Mat 返回底层 Mat（只读使用，不要关闭）
func (i *Image) Mat() gocv.Mat {
	return i.mat
}

// Bytes 返回像素数据副本
func (i *Image) Bytes() []byte {
	return i.mat.ToBytes()
}

// Clone 深拷贝像素缓冲区，保留标识
func (i *Image) Clone() *Image {
	return &Image{mat: i.mat.Clone(), id: i.id}
}

// ToImage 转换为 image.Image
func (i *Image) ToImage() (image.Image, error) {
	img, err := i.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("Mat 转换失败: %w", err)
	}
	return img, nil
}

// Close 释放资源
func (i *Image) Close() error {
	if i == nil {
		return nil
	}
	return i.mat.Close()
}

// String 返回字符串表示
func (i *Image) String() string {
	return fmt.Sprintf("Image(%s %dx%dx%d)", i.id, i.Width(), i.Height(), i.Channels())
}
