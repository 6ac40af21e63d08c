package regfile

const (
	// RegFileHeader is the required header line for .reg files version 5.00.
	RegFileHeader = "Windows Registry Editor Version 5.00"

	keyOpenBracket     = "["
	keyCloseBracket    = "]"
	deleteKeyPrefix    = "-"
	defaultValuePrefix = "@="
	commentPrefix      = ";"
	quote              = "\""
	dwordPrefix        = "dword:"
	hexPrefix          = "hex:"
	hexTypedOpen       = "hex("
	deleteValueToken   = "-"

	qwordTypeID = 11 // hex(b): prefix, 'b' is hex for 11 (REG_QWORD)

	crlf = "\r\n"

	scannerInitialBufferSize = 64 * 1024
	scannerMaxLineSize       = 1024 * 1024
)
