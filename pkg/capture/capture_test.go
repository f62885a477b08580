package capture

import (
	"context"
	"errors"
	"image"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoeyai/zoeymatch/internal/testimg"
	"github.com/zoeyai/zoeymatch/pkg/vision/cv"
)

// frames 依次返回 frames 中的图像，最后一帧重复返回
func frames(t *testing.T, imgs ...*image.Gray) (Grabber, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	return func(ctx context.Context) (*cv.Image, error) {
		i := int(calls.Add(1)) - 1
		if i >= len(imgs) {
			i = len(imgs) - 1
		}
		return cv.FromImage("frame", imgs[i])
	}, &calls
}

func TestWaitForAppears(t *testing.T) {
	target := testimg.NoiseGray(100, 80, 1)
	tpl, err := cv.FromImage("tpl", testimg.CropGray(target, image.Rect(30, 30, 50, 50)))
	if err != nil {
		t.Fatalf("创建模板失败: %v", err)
	}
	defer tpl.Close()

	blank := testimg.NoiseGray(100, 80, 2)
	grab, calls := frames(t, blank, blank, target)

	result, err := WaitFor(context.Background(), grab, tpl, time.Second, time.Millisecond)
	if err != nil {
		t.Fatalf("等待失败: %v", err)
	}
	if result == nil || result.Rect != cv.NewRect(30, 30, 20, 20) {
		t.Errorf("匹配结果不正确: %v", result)
	}
	if calls.Load() != 3 {
		t.Errorf("应截图 3 次, 实际 %d", calls.Load())
	}
}

func TestWaitForTimeout(t *testing.T) {
	tpl, err := cv.FromImage("tpl", testimg.NoiseGray(20, 20, 3))
	if err != nil {
		t.Fatalf("创建模板失败: %v", err)
	}
	defer tpl.Close()

	grab, _ := frames(t, testimg.NoiseGray(100, 80, 4))
	_, err = WaitFor(context.Background(), grab, tpl, 30*time.Millisecond, 5*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("应返回 ErrTimeout, 实际 %v", err)
	}
}

func TestWaitForCanceled(t *testing.T) {
	tpl, err := cv.FromImage("tpl", testimg.NoiseGray(20, 20, 5))
	if err != nil {
		t.Fatalf("创建模板失败: %v", err)
	}
	defer tpl.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	grab, _ := frames(t, testimg.NoiseGray(100, 80, 6))
	if _, err := WaitFor(ctx, grab, tpl, 0, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("应返回 context.Canceled, 实际 %v", err)
	}
}

func TestWaitForGrabError(t *testing.T) {
	tpl, err := cv.FromImage("tpl", testimg.NoiseGray(20, 20, 7))
	if err != nil {
		t.Fatalf("创建模板失败: %v", err)
	}
	defer tpl.Close()

	boom := errors.New("no display")
	grab := func(ctx context.Context) (*cv.Image, error) { return nil, boom }
	if _, err := WaitFor(context.Background(), grab, tpl, time.Second, 0); !errors.Is(err, boom) {
		t.Errorf("截图错误应被包装返回, 实际 %v", err)
	}
}

func TestCaptureRegionInvalid(t *testing.T) {
	if _, err := CaptureRegion("r", 0, 0, 0, 10); err == nil {
		t.Error("宽度为 0 的区域应返回错误")
	}
}
