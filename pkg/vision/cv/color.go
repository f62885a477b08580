package cv

import (
	"fmt"
	"strings"

	"gocv.io/x/gocv"
)

// ColorMode 匹配前统一的颜色模式
type ColorMode int

const (
	// ColorModeColor 三通道彩色 (BGR)
	ColorModeColor ColorMode = iota + 1
	// ColorModeGray 单通道灰度
	ColorModeGray
)

func (m ColorMode) String() string {
	switch m {
	case ColorModeColor:
		return "color"
	case ColorModeGray:
		return "gray"
	default:
		return "unknown"
	}
}

// Valid 是否为已知颜色模式
func (m ColorMode) Valid() bool {
	return m == ColorModeColor || m == ColorModeGray
}

// ParseColorMode 解析颜色模式字符串
func ParseColorMode(s string) (ColorMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "color", "colour", "rgb", "bgr":
		return ColorModeColor, nil
	case "gray", "grey":
		return ColorModeGray, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownColorMode, s)
	}
}

// conversion 描述 (当前通道数, 目标模式) 对应的转换
// copyOnly 为 true 表示已是目标模式，无需转换
type conversion struct {
	code     gocv.ColorConversionCode
	copyOnly bool
}

type conversionKey struct {
	channels int
	mode     ColorMode
}

var conversions = map[conversionKey]conversion{
	{1, ColorModeColor}: {code: gocv.ColorGrayToBGR},
	{3, ColorModeColor}: {copyOnly: true},
	{4, ColorModeColor}: {code: gocv.ColorBGRAToBGR},
	{1, ColorModeGray}:  {copyOnly: true},
	{3, ColorModeGray}:  {code: gocv.ColorBGRToGray},
	{4, ColorModeGray}:  {code: gocv.ColorBGRAToGray},
}

func lookupConversion(img *Image, mode ColorMode) (conversion, error) {
	if !mode.Valid() {
		return conversion{}, fmt.Errorf("%w: %d", ErrUnknownColorMode, int(mode))
	}
	conv, ok := conversions[conversionKey{channels: img.Channels(), mode: mode}]
	if !ok {
		return conversion{}, &UnsupportedChannelsError{ID: img.ID(), Channels: img.Channels()}
	}
	if err := checkDepth(img); err != nil {
		return conversion{}, err
	}
	return conv, nil
}

// matDepthMask MatType 低 3 位为深度
const matDepthMask = 7

// checkDepth 颜色转换和模板匹配只接受 8U/32F 深度
func checkDepth(img *Image) error {
	switch img.mat.Type() & matDepthMask {
	case gocv.MatTypeCV8U, gocv.MatTypeCV32F:
		return nil
	}
	return &UnsupportedDepthError{ID: img.ID(), Type: img.mat.Type()}
}

// Normalize 将图像转换为指定颜色模式，返回新图像（标识不变），不修改输入
// 已是目标模式时返回像素完全相同的副本
func Normalize(img *Image, mode ColorMode) (*Image, error) {
	if img.Empty() {
		return nil, emptyImageError(img)
	}
	conv, err := lookupConversion(img, mode)
	if err != nil {
		return nil, err
	}
	if conv.copyOnly {
		return img.Clone(), nil
	}
	return convert(img, conv.code)
}

// NormalizeShared 与 Normalize 相同，但已是目标模式时直接返回输入图像本身
// 返回的 release 只释放转换产生的副本，始终非 nil；调用方不得修改返回的图像
func NormalizeShared(img *Image, mode ColorMode) (*Image, func(), error) {
	if img.Empty() {
		return nil, func() {}, emptyImageError(img)
	}
	conv, err := lookupConversion(img, mode)
	if err != nil {
		return nil, func() {}, err
	}
	if conv.copyOnly {
		return img, func() {}, nil
	}
	out, err := convert(img, conv.code)
	if err != nil {
		return nil, func() {}, err
	}
	return out, func() { out.Close() }, nil
}

func convert(img *Image, code gocv.ColorConversionCode) (*Image, error) {
	dst := gocv.NewMat()
	if err := gocv.CvtColor(img.mat, &dst, code); err != nil {
		dst.Close()
		return nil, fmt.Errorf("图像 %s 颜色转换失败: %w", img.id, err)
	}
	if dst.Empty() {
		dst.Close()
		return nil, fmt.Errorf("图像 %s 颜色转换结果为空", img.id)
	}
	return NewImage(img.id, dst), nil
}
