package service

import (
	"context"
	"time"

	"github.com/homestash/homestash-server/internal/label"
	"github.com/homestash/homestash-server/internal/model"
)

func timeNowDateStamp() string {
	return time.Now().Format("20060102")
}

func testCodec() *label.Codec {
	return label.NewCodec(128)
}

// nopLabelRepo satisfies LabelRepository for tests that do not care
// about the label cache.
type nopLabelRepo struct{}

func (nopLabelRepo) Upsert(context.Context, model.Label) error { return nil }
func (nopLabelRepo) Find(context.Context, string, string, model.ScanCategory) (*model.Label, error) {
	return nil, nil
}
func (nopLabelRepo) DeleteOrphaned(context.Context) (int64, error) { return 0, nil }
