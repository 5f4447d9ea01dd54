// Package calendar holds the UTC date arithmetic shared by the subscription
// engine and the job scheduler.
//
// Every helper normalizes its inputs to UTC before comparing or computing, so
// values read from storage with a local offset never mix with UTC values.
// Month arithmetic clamps to the last valid day of the target month instead of
// overflowing into the next one:
//
//	calendar.AddMonths(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), 1) // 2024-02-29
//	calendar.DateClamped(2023, time.February, 29)                         // 2023-02-28
//
// Clock is a plain func() time.Time so services can be driven by a fixed time
// in tests:
//
//	svc := subscription.NewService(store, subscription.WithClock(calendar.Fixed(now)))
package calendar
