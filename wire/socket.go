package wire

// Pattern names one of the socket roles in the wire protocol.
type Pattern string

const (
	PatternReq        Pattern = "REQ"
	PatternRep        Pattern = "REP"
	PatternPub        Pattern = "PUB"
	PatternSub        Pattern = "SUB"
	PatternSurveyor   Pattern = "SURVEYOR"
	PatternRespondent Pattern = "RESPONDENT"
)

// SocketDescriptor is the address and timing contract for one endpoint of
// the wire protocol. Port 0 means "ephemeral, bind-and-report". The source
// project passed live socket handles and their descriptors interchangeably
// through the same parameter; this module always keeps them distinct — a
// SocketDescriptor is pure configuration, a *Conn is the live connection
// built from one.
type SocketDescriptor struct {
	Pattern       Pattern `json:"pattern"`
	Host          string  `json:"host"`
	Port          int     `json:"port"`
	Listen        bool    `json:"listen"`
	SendTimeoutMs int     `json:"send_timeout_ms"`
	RecvTimeoutMs int     `json:"recv_timeout_ms"`
}
