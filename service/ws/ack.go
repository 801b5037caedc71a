package ws

import (
	"maps"
	"sync"
)

// responder ackイベントを高々1度だけ送信します
type responder struct {
	sess *session
	id   string
	once sync.Once
}

func newResponder(sess *session, id string) *responder {
	return &responder{sess: sess, id: id}
}

func (r *responder) succeed(result interface{}) {
	body := toFields(result)
	body["success"] = true
	r.send(body)
}

func (r *responder) fail(eb ErrorBody) {
	r.send(map[string]interface{}{
		"success": false,
		"error":   eb.Message,
		"context": eb.Context,
		"code":    eb.Code,
	})
}

func (r *responder) send(body map[string]interface{}) {
	r.once.Do(func() {
		if len(r.id) == 0 {
			return
		}
		body["id"] = r.id
		r.sess.sendEvent(TypeAck, body)
	})
}

// toFields ハンドラの結果をackのボディに展開します
func toFields(result interface{}) map[string]interface{} {
	switch v := result.(type) {
	case nil:
		return map[string]interface{}{}
	case map[string]interface{}:
		return maps.Clone(v)
	}

	b, err := json.Marshal(result)
	if err != nil {
		return map[string]interface{}{}
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(b, &fields); err != nil || fields == nil {
		return map[string]interface{}{"data": result}
	}
	return fields
}
