package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Command level messages (info)
		"Indexed %d samples, %d keyframes (%s)":            "%d サンプル、%d キーフレームをインデックス化しました (%s)",
		"Saved index to %s":                                "インデックスを %s に保存しました",
		"Extracting %d frames from %s with the %s decoder": "%[2]s から %[1]d フレームを %[3]s デコーダで抽出中",
		"Wrote %d frames to %s":                            "%d フレームを %s に書き出しました",
		"Summary saved to %s":                              "サマリーを %s に保存しました",
		"Contact sheet saved to %s":                        "コンタクトシートを %s に保存しました",
		"Interrupted, shutting down...":                    "中断されました。シャットダウン中...",

		// Index building and sidecars
		"First sample is not a keyframe; treating it as one": "先頭サンプルがキーフレームではありません。キーフレームとして扱います",
		"Index %s is corrupt, rebuilding: %v":                "インデックス %s が破損しています。再構築します: %v",

		// Decoder selection
		"Decoder type %s is not available in this build": "デコーダ種別 %s はこのビルドでは利用できません",
		"Creating %s decoder on %s device %d":            "%s デコーダを %s デバイス %d 上に作成中",
		"Decoder %s unavailable: %v":                     "デコーダ %s は利用できません: %v",

		// Decoding
		"Decoding %d frames in %d passes (%d samples)":      "%d フレームを %d パスでデコード中 (%d サンプル)",
		"Pass %d/%d: samples %d-%d, %d requested":           "パス %d/%d: サンプル %d-%d、要求 %d",
		"Decoding %d samples (%d bytes)":                    "%d サンプルをデコード中 (%d バイト)",
		"Decoder returned no frame for %d requested frames": "要求された %d フレームに対してデコーダがフレームを返しませんでした",
		"Wrote %s":                                          "%s を書き出しました",
	})
}
