package ws

type rawMessage struct {
	t    int
	data []byte
}

type message struct {
	Type string      `json:"type"`
	Body interface{} `json:"body"`
}

func makeMessage(t string, b interface{}) (m *message) {
	return &message{
		Type: t,
		Body: b,
	}
}

func (m *message) toJSON() (b []byte) {
	b, _ = json.Marshal(m)
	return
}

// ErrorBody errorイベントのボディ
type ErrorBody struct {
	Message string `json:"message"`
	Context string `json:"context,omitempty"`
	Code    string `json:"code"`
}

// 送信イベントタイプ
const (
	TypeError       = "error"
	TypeServerError = "server_error"
	TypeAck         = "ack"
	TypePong        = "pong"
)
