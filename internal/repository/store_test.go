package repository

import "testing"

func TestRebindDollar(t *testing.T) {
	got := rebindDollar(`UPDATE t SET a=?, b=? WHERE id=? AND version=?`)
	want := `UPDATE t SET a=$1, b=$2 WHERE id=$3 AND version=$4`
	if got != want {
		t.Fatalf("got %s", got)
	}
	q := &querier{dialect: DialectSQLite}
	if q.rebind("a=?") != "a=?" {
		t.Fatal("sqlite must keep ? placeholders")
	}
}

func TestNullTimeScan(t *testing.T) {
	cases := []any{
		"2026-10-15T09:30:00.000000000Z",
		"2026-10-15 09:30:00",
		[]byte("2026-10-15T09:30:00Z"),
	}
	for _, v := range cases {
		var n nullTime
		if err := n.Scan(v); err != nil {
			t.Fatalf("Scan(%v): %v", v, err)
		}
		if !n.Valid || n.Time.Hour() != 9 || n.Time.Minute() != 30 {
			t.Fatalf("Scan(%v) = %v", v, n.Time)
		}
	}
	var n nullTime
	if err := n.Scan(nil); err != nil || n.Valid || n.ptr() != nil {
		t.Fatal("nil must scan to invalid")
	}
	if err := n.Scan(42); err == nil {
		t.Fatal("expected error for int")
	}
}
