package event

import "github.com/leandro-lugaresi/hub"

// Unsubscribe 購読を解除します
//
// 解除が完了するまでReceiverを読み捨てるため、バッファが埋まった状態で
// Publishしている発行側も解除待ちの間にブロックから抜けられます。
func Unsubscribe(h *hub.Hub, sub hub.Subscription) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Unsubscribe(sub)
	}()
	for {
		select {
		case <-done:
			return
		case _, ok := <-sub.Receiver:
			if !ok {
				<-done
				return
			}
		}
	}
}
