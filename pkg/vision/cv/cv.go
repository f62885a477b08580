// Package cv 提供模板匹配功能
//
// 使用归一化互相关 (TM_CCOEFF_NORMED) 在背景图中定位模板，固定尺度和方向。
//
// 基本用法:
//
//	tpl, _ := cv.ReadImage("button.png")
//	bg, _ := cv.ReadImage("screen.png")
//	defer tpl.Close()
//	defer bg.Close()
//
//	// 最佳匹配，未指定阈值时使用 DefaultThreshold (0.9)
//	result, err := cv.FindBestMatch(tpl, bg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if result != nil {
//	    fmt.Printf("找到位置: %s 得分 %.3f\n", result.Rect, result.Score)
//	}
//
//	// 所有匹配
//	results, err := cv.FindMultipleMatches(tpl, bg,
//	    cv.WithTemplateThreshold(0.8),
//	    cv.WithTemplateMode(cv.ColorModeColor),
//	)
package cv
