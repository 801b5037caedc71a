package event

// 各トピックのFieldsのうち targets は送信先となるコネクションキーのスナップショット([]string)です。
// スナップショットは発行時点の状態で確定し、通知サービスはそれ以外の宛先に送信しません。
const (
	// UserOnline ユーザーがオンラインになった (最初のコネクション)
	// 	Fields:
	// 		user_id: string
	// 		display_name: string
	// 		datetime: time.Time
	UserOnline = "user.online"
	// UserOffline ユーザーがオフラインになった (最後のコネクションが切断)
	// 	Fields:
	// 		user_id: string
	// 		datetime: time.Time
	UserOffline = "user.offline"
	// UserReconnected オンラインのユーザーが新しいコネクションを追加した
	// 	Fields:
	// 		user_id: string
	// 		conn_key: string
	// 		connections: int
	// 		targets: []string
	UserReconnected = "user.reconnected"

	// RoomJoined コネクションがルームに参加した
	// 	Fields:
	// 		room_id: string
	// 		conn_key: string
	// 		user: model.UserFragment
	// 		targets: []string
	RoomJoined = "room.joined"
	// RoomLeft コネクションがルームから退出した
	// 	Fields:
	// 		room_id: string
	// 		conn_key: string
	// 		user: model.UserFragment
	// 		targets: []string
	RoomLeft = "room.left"

	// MessageReceived ルームにメッセージが投稿された
	// 	Fields:
	// 		room_id: string
	// 		message: *model.Message
	// 		sender: model.UserFragment
	// 		targets: []string
	MessageReceived = "message.received"
	// MessageDelivered 送信者のコネクションへの配信確認
	// 	Fields:
	// 		conn_key: string
	// 		message_id: uuid.UUID
	// 		chat_id: string
	// 		status: model.DeliveryStatus
	// 		datetime: time.Time
	MessageDelivered = "message.delivered"
	// MessageRead メッセージが既読になった
	// 	Fields:
	// 		room_id: string
	// 		message_id: uuid.UUID
	// 		user_id: string
	// 		datetime: time.Time
	// 		targets: []string
	MessageRead = "message.read"
	// MessagesBulkRead ルームの未読メッセージがまとめて既読になった
	// 	Fields:
	// 		room_id: string
	// 		user_id: string
	// 		count: int
	// 		datetime: time.Time
	// 		targets: []string
	MessagesBulkRead = "message.bulk_read"

	// UserTyping ユーザーが入力を開始した
	// 	Fields:
	// 		room_id: string
	// 		user: model.UserFragment
	// 		targets: []string
	UserTyping = "typing.started"
	// UserStoppedTyping ユーザーが入力を終了した
	// 	Fields:
	// 		room_id: string
	// 		user: model.UserFragment
	// 		targets: []string
	UserStoppedTyping = "typing.stopped"

	// CallIncoming 着信
	// 	Fields:
	// 		call: call.Call
	// 		caller: model.UserFragment
	// 		user_id: string (着信先)
	CallIncoming = "call.incoming"
	// CallAccepted 通話が応答された
	// 	Fields:
	// 		call: call.Call
	// 		user_id: string (発信者)
	CallAccepted = "call.accepted"
	// CallStatusUpdated 応答したユーザーの他デバイスへの状態通知
	// 	Fields:
	// 		call: call.Call
	// 		user_id: string
	// 		except_conn_key: string
	CallStatusUpdated = "call.status_updated"
	// CallRejected 通話が拒否された
	// 	Fields:
	// 		call: call.Call
	// 		user_id: string (通知先)
	CallRejected = "call.rejected"
	// CallEnded 通話が終了した (ENDED, MISSED, FAILED)
	// 	Fields:
	// 		call: call.Call
	// 		user_ids: []string (通知先)
	// 		reason: string
	CallEnded = "call.ended"
	// CallSignal WebRTCシグナリングの中継
	// 	Fields:
	// 		call_id: uuid.UUID
	// 		kind: string (offer, answer, ice-candidate)
	// 		from_user_id: string
	// 		user_id: string (中継先)
	// 		payload: json.RawMessage
	CallSignal = "call.signal"
	// CallStatsUpdated 通話統計が更新された (間引きあり)
	// 	Fields:
	// 		stats: call.Stats
	CallStatsUpdated = "call.stats_updated"
)
