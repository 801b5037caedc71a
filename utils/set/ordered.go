package set

import "iter"

// Ordered 挿入順を保持する集合
//
// 並行アクセスに対して安全ではありません。呼び出し側で排他制御してください。
type Ordered[T comparable] struct {
	index map[T]int
	items []T
}

// NewOrdered 空の集合を生成します
func NewOrdered[T comparable](v ...T) *Ordered[T] {
	s := &Ordered[T]{index: make(map[T]int, len(v))}
	s.Add(v...)
	return s
}

// Add 要素を追加します。追加された要素があった場合trueを返します
func (s *Ordered[T]) Add(v ...T) (added bool) {
	for _, e := range v {
		if _, ok := s.index[e]; ok {
			continue
		}
		s.index[e] = len(s.items)
		s.items = append(s.items, e)
		added = true
	}
	return
}

// Remove 要素を削除します。削除された要素があった場合trueを返します
func (s *Ordered[T]) Remove(v ...T) (removed bool) {
	for _, e := range v {
		i, ok := s.index[e]
		if !ok {
			continue
		}
		delete(s.index, e)
		s.items = append(s.items[:i], s.items[i+1:]...)
		for j := i; j < len(s.items); j++ {
			s.index[s.items[j]] = j
		}
		removed = true
	}
	return
}

// Contains 指定した要素が含まれているかどうか
func (s *Ordered[T]) Contains(v T) bool {
	_, ok := s.index[v]
	return ok
}

// Len 要素数
func (s *Ordered[T]) Len() int {
	return len(s.items)
}

// Values 挿入順の要素のコピーを返します
func (s *Ordered[T]) Values() []T {
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// All 挿入順に要素を列挙します
func (s *Ordered[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, e := range s.items {
			if !yield(e) {
				return
			}
		}
	}
}
