package cv

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

var (
	// ErrEmptyImage 图像为空（宽或高为 0）
	ErrEmptyImage = errors.New("图像为空")
	// ErrUnknownColorMode 未知的颜色模式
	ErrUnknownColorMode = errors.New("未知的颜色模式")
)

// ImageSizeError 图像尺寸错误：模板在任一方向上大于背景图
type ImageSizeError struct {
	TemplateID   string
	BackgroundID string
	// SourceSize 背景图尺寸 (w, h)
	SourceSize [2]int
	// SearchSize 模板尺寸 (w, h)
	SearchSize [2]int
}

func (e *ImageSizeError) Error() string {
	return fmt.Sprintf("模板 %s 尺寸 %dx%d 大于背景图 %s 尺寸 %dx%d",
		e.TemplateID, e.SearchSize[0], e.SearchSize[1],
		e.BackgroundID, e.SourceSize[0], e.SourceSize[1])
}

// ChannelMismatchError 模板与背景图通道数/类型不一致
type ChannelMismatchError struct {
	TemplateID         string
	BackgroundID       string
	TemplateChannels   int
	BackgroundChannels int
}

func (e *ChannelMismatchError) Error() string {
	return fmt.Sprintf("模板 %s (%d 通道) 与背景图 %s (%d 通道) 颜色模式不一致，请先统一归一化",
		e.TemplateID, e.TemplateChannels, e.BackgroundID, e.BackgroundChannels)
}

// UnsupportedChannelsError 不支持的通道数
type UnsupportedChannelsError struct {
	ID       string
	Channels int
}

func (e *UnsupportedChannelsError) Error() string {
	return fmt.Sprintf("图像 %s 通道数 %d 不受支持 (仅支持 1/3/4)", e.ID, e.Channels)
}

// emptyImageError 包装 ErrEmptyImage 并带上图像标识
func emptyImageError(img *Image) error {
	if img == nil {
		return fmt.Errorf("%w: nil", ErrEmptyImage)
	}
	return fmt.Errorf("%w: %s", ErrEmptyImage, img.ID())
}

// UnsupportedDepthError 不支持的像素深度（仅支持 8 位无符号和 32 位浮点）
type UnsupportedDepthError struct {
	ID   string
	Type gocv.MatType
}

func (e *UnsupportedDepthError) Error() string {
	return fmt.Sprintf("图像 %s 像素类型 %d 不受支持 (仅支持 8U/32F)", e.ID, int(e.Type))
}
