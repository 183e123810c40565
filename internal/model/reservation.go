package model

import "time"

// Reservation はユーザーによるスペースの予約を表す。
// SpaceIDはSpaceへの弱参照であり、スペース一覧が古い場合は
// 参照先が存在しないことがある（表示側でフォールバックする）。
// 予約は作成したアイデンティティにスコープされ、クライアントは
// 常に現在のアイデンティティの予約のみを取得する。
type Reservation struct {
	ID              int64     `json:"id"`
	SpaceID         int64     `json:"spaceId"`
	UserEmail       string    `json:"userEmail"`
	ReservationDate Date      `json:"reservationDate"`
	CreatedAt       time.Time `json:"-"`
}
