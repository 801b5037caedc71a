package consts

const (
	HeaderVersion = "X-HIBIKI-VERSION"
)
