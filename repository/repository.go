package repository

// Repository データリポジトリ
type Repository interface {
	MessageRepository
	ChatRepository
}
