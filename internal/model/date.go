package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// dateLayout は予約日のワイヤフォーマット（ISO 8601のカレンダー日付）。
const dateLayout = "2006-01-02"

// Date は時刻を持たないカレンダー日付を表す。
// JSONおよびデータベース上では常に YYYY-MM-DD 形式で表現される。
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// Today は実行環境のローカルタイムゾーンにおける今日の日付を返す。
func Today() Date {
	return DateOf(time.Now())
}

// DateOf はtime.Timeからカレンダー日付部分を取り出す。
func DateOf(t time.Time) Date {
	year, month, day := t.Date()
	return Date{Year: year, Month: month, Day: day}
}

// ParseDate は YYYY-MM-DD 形式の文字列をDateにパースする。
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// IsZero はゼロ値（未設定）の日付かどうかを返す。
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// String は YYYY-MM-DD 形式の文字列を返す。
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Time はローカルタイムゾーンの0時としてtime.Timeに変換する。
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.Local)
}

// MarshalJSON はJSON文字列 "YYYY-MM-DD" として整列化する。
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON はJSON文字列からDateを復元する。
// タイムスタンプ形式（"2024-06-01T00:00:00Z"等）の先頭日付部分も受理する。
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value はdatabase/sql/driver.Valuerを実装する。DATE列として保存する。
func (d Date) Value() (driver.Value, error) {
	return d.Time(), nil
}

// Scan はdatabase/sql.Scannerを実装する。DATE列から読み出す。
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case []byte:
		parsed, err := ParseDate(string(v))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into model.Date", src)
	}
}
