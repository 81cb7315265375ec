package protocol

import "strconv"

type DisconnectReason uint8

const (
	DisconnectNone DisconnectReason = iota
	DisconnectQuit
	DisconnectTimeout
	DisconnectFull
	DisconnectMessageError
	DisconnectShutdown
)

func (dr DisconnectReason) String() string {
	switch dr {
	case DisconnectNone:
		return ""
	case DisconnectQuit:
		return "client quit"
	case DisconnectTimeout:
		return "connection timed out"
	case DisconnectFull:
		return "server full"
	case DisconnectMessageError:
		return "message error"
	case DisconnectShutdown:
		return "server shutting down"
	default:
		return strconv.Itoa(int(dr))
	}
}
