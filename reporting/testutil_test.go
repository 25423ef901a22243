package reporting

import (
	"time"

	"github.com/ethereum-optimism/infra/op-reporter/types"
)

var testStart = time.Date(2024, 7, 5, 14, 3, 9, 0, time.UTC)

func fixedClock() time.Time {
	return testStart.Add(time.Minute)
}

// newSnapshot builds a snapshot with one message per severity, spaced one second apart
func newSnapshot(name string, sevs ...types.Severity) types.EntrySnapshot {
	e := types.NewEntry(name, testStart)
	for i, sev := range sevs {
		e.Append(types.Message{
			Severity: sev,
			Text:     string(sev) + " step",
			Time:     testStart.Add(time.Duration(i+1) * time.Second),
		})
	}
	return e.Snapshot()
}
