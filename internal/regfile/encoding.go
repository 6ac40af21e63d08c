package regfile

import "github.com/joshuapare/hklmshim/internal/strenc"

func decodeInputToBytes(data []byte) []byte { return strenc.DecodeFileInput(data) }

func encodeUTF16LEWithBOM(text string) []byte { return strenc.EncodeUTF16LEWithBOM(text) }

func utf16LEStringToNarrow(data []byte) string { return strenc.UTF16LEStringToNarrow(data) }

func narrowToUTF16LENulTerminated(s string) []byte { return strenc.NarrowToUTF16LENulTerminated(s) }

func narrowMultiToUTF16LEDoubleNulTerminated(strs []string) []byte {
	return strenc.NarrowMultiToUTF16LEDoubleNulTerminated(strs)
}
