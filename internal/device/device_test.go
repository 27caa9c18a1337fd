package device

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yndnr/guardian/internal/core/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		typ  domain.DeviceType
		want string
	}{
		{domain.DeviceToken, "token"},
		{domain.DeviceStorage, "storage"},
		{domain.DeviceOther, "other"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			info := domain.Descriptor{Name: "dev", ID: "id", Type: tt.typ}
			d := Classify(nil, info)

			var got string
			switch d.(type) {
			case Token:
				got = "token"
			case Storage:
				got = "storage"
			case Other:
				got = "other"
			}
			if got != tt.want {
				t.Errorf("Classify(%v) = %s, want %s", tt.typ, got, tt.want)
			}
			if d.Descriptor() != info {
				t.Errorf("Descriptor() = %v, want %v", d.Descriptor(), info)
			}
		})
	}
}

func TestPlaceholder(t *testing.T) {
	p := NewPlaceholder()
	ctx := context.Background()

	list, err := p.List(ctx)
	if err != nil || len(list) != 0 {
		t.Errorf("List() = %v, %v; want empty", list, err)
	}

	if _, err := p.Get(ctx, "anything"); !errors.Is(err, domain.ErrDeviceNotFound) {
		t.Errorf("Get() error = %v, want ErrDeviceNotFound", err)
	}

	start := time.Now()
	if _, err := p.WaitForDevice(ctx, 20*time.Millisecond); !errors.Is(err, domain.ErrTimeout) {
		t.Errorf("WaitForDevice() error = %v, want ErrTimeout", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("WaitForDevice returned before the timeout")
	}
}

func TestPlaceholder_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPlaceholder().WaitForDevice(ctx, time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("WaitForDevice() error = %v, want context.Canceled", err)
	}
}
