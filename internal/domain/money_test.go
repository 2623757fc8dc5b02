package domain

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestMoney_Times(t *testing.T) {
	t.Parallel()

	price := NewMoney(1800.00)
	got, err := price.Times(3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 540000 {
		t.Fatalf("expected 540000 cents, got %d", got)
	}
	if got.String() != "5400.00" {
		t.Fatalf("expected 5400.00, got %s", got)
	}

	if got, err := price.Times(0); err != nil || got != 0 {
		t.Fatalf("Times(0) = %d, %v", got, err)
	}
}

func TestMoney_TimesOverflow(t *testing.T) {
	t.Parallel()

	huge, err := ParseMoney("92233720368547758.07")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got, err := huge.Times(1); err != nil || got != huge {
		t.Fatalf("Times(1) = %d, %v", got, err)
	}
	if _, err := huge.Times(3); !errors.Is(err, ErrMoneyOverflow) {
		t.Fatalf("expected ErrMoneyOverflow, got %v", err)
	}
	if _, err := NewMoney(10).Times(-1); err == nil {
		t.Fatal("expected error for negative seat count")
	}
}

func TestParseMoney(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Money
		wantErr bool
	}{
		{in: "1800", want: 180000},
		{in: "1800.5", want: 180050},
		{in: "0.07", want: 7},
		{in: "-2.50", want: -250},
		{in: ".5", want: 50},
		{in: "7.", want: 700},
		{in: "92233720368547758.07", want: math.MaxInt64},
		{in: "1.234", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
		{in: "-", wantErr: true},
		{in: ".", wantErr: true},
		{in: "--5", wantErr: true},
		{in: "+5", wantErr: true},
		{in: "10.-5", wantErr: true},
		{in: "10.+5", wantErr: true},
		{in: "1 000", wantErr: true},
		{in: "184467440737095517.00", wantErr: true},
		{in: "92233720368547758.08", wantErr: true},
		{in: "99999999999999999999", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMoney(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseMoney(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestMoney_JSON(t *testing.T) {
	t.Parallel()

	var payload struct {
		Price Money `json:"price"`
	}
	if err := json.Unmarshal([]byte(`{"price": 1800.25}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.Price != 180025 {
		t.Fatalf("expected 180025, got %d", payload.Price)
	}

	out, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"price":1800.25}` {
		t.Fatalf("unexpected encoding %s", out)
	}
}
