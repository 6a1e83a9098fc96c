package memaccess

// Page protection and allocation-type constants, values matching the
// Win32 VirtualAlloc/VirtualProtect ABI (spec §4.3 operates in terms of
// these even on a build where the accessor is stubbed out).
const (
	PageNoAccess         = 0x01
	PageReadOnly         = 0x02
	PageReadWrite        = 0x04
	PageWriteCopy        = 0x08
	PageExecute          = 0x10
	PageExecuteRead      = 0x20
	PageExecuteReadWrite = 0x40
	PageExecuteWriteCopy = 0x80

	MemCommit  = 0x1000
	MemReserve = 0x2000
	MemRelease = 0x8000
)

func isReadable(protect uint32) bool {
	switch protect & 0xff {
	case PageReadOnly, PageReadWrite, PageWriteCopy,
		PageExecuteRead, PageExecuteReadWrite, PageExecuteWriteCopy:
		return true
	default:
		return false
	}
}

func isWritable(protect uint32) bool {
	switch protect & 0xff {
	case PageReadWrite, PageWriteCopy, PageExecuteReadWrite, PageExecuteWriteCopy:
		return true
	default:
		return false
	}
}

func isExecutable(protect uint32) bool {
	switch protect & 0xff {
	case PageExecute, PageExecuteRead, PageExecuteReadWrite, PageExecuteWriteCopy:
		return true
	default:
		return false
	}
}
