// Package capture 提供屏幕截图，以及在截图中循环等待模板出现的功能
package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-vgo/robotgo"

	"github.com/zoeyai/zoeymatch/pkg/vision/cv"
)

// DefaultInterval 默认轮询间隔
const DefaultInterval = 100 * time.Millisecond

// ErrTimeout 等待超时
var ErrTimeout = errors.New("匹配超时")

// Grabber 获取一帧背景图，调用方负责关闭返回的图像
type Grabber func(ctx context.Context) (*cv.Image, error)

// CaptureScreen 截取全屏
func CaptureScreen(id string) (*cv.Image, error) {
	img, err := robotgo.CaptureImg()
	if err != nil {
		return nil, fmt.Errorf("截屏失败: %w", err)
	}
	return cv.FromImage(id, img)
}

// CaptureRegion 截取屏幕区域
func CaptureRegion(id string, x, y, width, height int) (*cv.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("截图区域无效: %dx%d", width, height)
	}
	img, err := robotgo.CaptureImg(x, y, width, height)
	if err != nil {
		return nil, fmt.Errorf("截取区域失败: %w", err)
	}
	return cv.FromImage(id, img)
}

// ScreenGrabber 每次调用截取全屏
func ScreenGrabber(id string) Grabber {
	return func(ctx context.Context) (*cv.Image, error) {
		return CaptureScreen(id)
	}
}

// GetScreenSize 获取屏幕尺寸
func GetScreenSize() (width, height int) {
	return robotgo.GetScreenSize()
}

// WaitFor 循环截图匹配直到找到模板、超时或 ctx 取消
// timeout <= 0 表示只受 ctx 控制；interval <= 0 使用 DefaultInterval
func WaitFor(ctx context.Context, grab Grabber, template *cv.Image, timeout, interval time.Duration, opts ...cv.TemplateOption) (*cv.MatchResult, error) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		result, err := matchOnce(ctx, grab, template, opts...)
		if err != nil || result != nil {
			return result, err
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrTimeout
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func matchOnce(ctx context.Context, grab Grabber, template *cv.Image, opts ...cv.TemplateOption) (*cv.MatchResult, error) {
	screen, err := grab(ctx)
	if err != nil {
		return nil, fmt.Errorf("截图失败: %w", err)
	}
	defer screen.Close()

	return cv.FindBestMatch(template, screen, opts...)
}
