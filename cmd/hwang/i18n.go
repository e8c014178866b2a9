// Package main provides localization for the hwang CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI output.
	l10n.Register("ja", l10n.LexiconMap{
		// Inspect command
		"Video: %s":                "動画: %s",
		"Codec: %s (%dx%d)":        "コーデック: %s (%dx%d)",
		"Fragmented: %v":           "フラグメント化: %v",
		"Frames: %d":               "フレーム数: %d",
		"Keyframes: %d":            "キーフレーム数: %d",
		"Non-reference frames: %d": "非参照フレーム数: %d",
		"Metadata: %d bytes":       "メタデータ: %d バイト",
		"GOP: max %d, mean %.1f":   "GOP: 最大 %d、平均 %.1f",
		"Sample data: %s":          "サンプルデータ: %s",

		// Slice command
		"%d frames requested, %d samples to decode in %d passes": "要求 %d フレーム、%d サンプルを %d パスでデコード",

		// Decoders command
		"Selected: %s":        "選択: %s",
		"Selected: none (%v)": "選択: なし (%v)",
		"ffmpeg: available":   "ffmpeg: 利用可能",
		"ffmpeg: not found":   "ffmpeg: 見つかりません",

		// Extract command
		"no frames requested": "フレームが指定されていません",

		// Version command
		"hwang version %s": "hwang バージョン %s",
	})
}
