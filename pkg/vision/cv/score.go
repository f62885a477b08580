package cv

import (
	"fmt"
	"math"

	"gocv.io/x/gocv"

	"github.com/zoeyai/zoeymatch/pkg/vision/peak"
)

// Score 计算模板在背景图上的归一化互相关得分图 (TM_CCOEFF_NORMED)
// 得分图尺寸为 (bgH-tplH+1) x (bgW-tplW+1)，(row, col) 对应模板左上角位置
// 两张图必须已归一化为相同颜色模式
func Score(background, template *Image) (*peak.ScoreMap, error) {
	if err := CheckMatchable(template, background); err != nil {
		return nil, err
	}
	if background.mat.Type() != template.mat.Type() {
		return nil, &ChannelMismatchError{
			TemplateID:         template.ID(),
			BackgroundID:       background.ID(),
			TemplateChannels:   template.Channels(),
			BackgroundChannels: background.Channels(),
		}
	}
	if err := checkDepth(template); err != nil {
		return nil, err
	}

	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	if err := gocv.MatchTemplate(background.mat, template.mat, &result, gocv.TmCcoeffNormed, mask); err != nil {
		return nil, fmt.Errorf("模板匹配失败: %w", err)
	}

	rows := background.Height() - template.Height() + 1
	cols := background.Width() - template.Width() + 1
	if result.Rows() != rows || result.Cols() != cols {
		return nil, fmt.Errorf("得分图尺寸异常: got %dx%d, want %dx%d", result.Rows(), result.Cols(), rows, cols)
	}

	raw, err := result.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("读取得分图失败: %w", err)
	}
	data := make([]float64, len(raw))
	for i, v := range raw {
		f := float64(v)
		if math.IsInf(f, 0) {
			f = math.NaN()
		}
		data[i] = f
	}
	return peak.NewScoreMapFrom(rows, cols, data)
}

// CheckMatchable 在任何数值计算之前检查空图像和尺寸
func CheckMatchable(template, background *Image) error {
	if template.Empty() {
		return emptyImageError(template)
	}
	if background.Empty() {
		return emptyImageError(background)
	}
	if background.Width() < template.Width() || background.Height() < template.Height() {
		return &ImageSizeError{
			TemplateID:   template.ID(),
			BackgroundID: background.ID(),
			SourceSize:   [2]int{background.Width(), background.Height()},
			SearchSize:   [2]int{template.Width(), template.Height()},
		}
	}
	return nil
}
