// Package model はドメインモデルを定義する。
package model

import "time"

// Space は予約可能なスペースを表す。
// IDはサーバー側で採番される不透明な識別子。
// 名前の一意性や定員の重複チェックはバックエンドの責務であり、
// クライアントは読み取り専用のスナップショットとして扱う。
type Space struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Capacity  int       `json:"capacity"`
	CreatedAt time.Time `json:"-"`
}
