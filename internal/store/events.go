package store

import (
	"context"

	"github.com/sirupsen/logrus"

	apigen "github.com/ensigniasec/cleaner-client/internal/api-gen"
	"github.com/ensigniasec/cleaner-client/internal/realtime"
)

// PushedEvents lists the event names the store reacts to.
//
//nolint:gochecknoglobals // read-only list.
var PushedEvents = []apigen.EventType{
	apigen.EventScanProgress,
	apigen.EventScanComplete,
	apigen.EventCleaningProgress,
	apigen.EventCleaningComplete,
}

// AttachBridge applies pushed scan and cleanup events from b until ctx is
// done or the bridge stops.
func (s *Store) AttachBridge(ctx context.Context, b *realtime.Bridge) {
	sub := b.Subscribe(PushedEvents...)
	defer sub.Close()
	s.Consume(ctx, sub.C())
}

// Consume applies events until ctx is done or events is closed.
func (s *Store) Consume(ctx context.Context, events <-chan realtime.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.handleEvent(ev)
		}
	}
}

func (s *Store) handleEvent(ev realtime.Event) {
	seq := s.seq.Add(1)
	switch ev.Type {
	case apigen.EventScanProgress:
		p, err := realtime.DecodeScanProgress(ev)
		if err != nil {
			logrus.WithError(err).Warn("store: bad scan_progress event")
			return
		}
		s.applyScanUpdate(ScanUpdate{
			Seq:      seq,
			Source:   SourcePush,
			ScanID:   p.ScanID,
			Status:   p.Status,
			Progress: p.Progress,
		})
	case apigen.EventScanComplete:
		c, err := realtime.DecodeScanComplete(ev)
		if err != nil {
			logrus.WithError(err).Warn("store: bad scan_complete event")
			return
		}
		status := c.Status
		if status == "" {
			status = apigen.ScanStateCompleted
		}
		s.applyScanUpdate(ScanUpdate{
			Seq:        seq,
			Source:     SourcePush,
			ScanID:     c.ScanID,
			Status:     status,
			Progress:   1,
			TotalFiles: &c.TotalFiles,
			TotalSize:  &c.TotalSize,
		})
	case apigen.EventCleaningProgress:
		p, err := realtime.DecodeCleaningProgress(ev)
		if err != nil {
			logrus.WithError(err).Warn("store: bad cleaning_progress event")
			return
		}
		s.update(func(st State) State { return cleaningProgressed(st, p) })
	case apigen.EventCleaningComplete:
		c, err := realtime.DecodeCleaningComplete(ev)
		if err != nil {
			logrus.WithError(err).Warn("store: bad cleaning_complete event")
			return
		}
		s.update(func(st State) State { return cleaningPushedComplete(st, c) })
	}
}
