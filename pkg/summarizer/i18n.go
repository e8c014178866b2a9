package summarizer

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		"Extraction Summary":   "抽出サマリー",
		"Generated at":         "生成日時",
		"Item":                 "項目",
		"Value":                "値",
		"Yes":                  "はい",
		"No":                   "いいえ",
		"Video":                "動画",
		"File":                 "ファイル",
		"Codec":                "コーデック",
		"Resolution":           "解像度",
		"Fragmented":           "フラグメント化",
		"Frames":               "フレーム数",
		"Keyframes":            "キーフレーム数",
		"Non-reference Frames": "非参照フレーム数",
		"Sample Data":          "サンプルデータ",
		"Decode":               "デコード",
		"Backend":              "バックエンド",
		"Passes":               "パス数",
		"Requested Frames":     "要求フレーム数",
		"Decoded Samples":      "デコードサンプル数",
		"Decode Overhead":      "デコード倍率",
		"Written Frames":       "書き出しフレーム数",
		"Duration":             "所要時間",
		"Output":               "出力",
		"Directory":            "ディレクトリ",
		"Format":               "形式",
		"Contact Sheet":        "コンタクトシート",
	})
}
