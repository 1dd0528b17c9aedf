// Package influxdb records run metrics as time series.
//
// Each analysis run writes one point carrying its classification counts
// and duration; each deletion pass writes its outcome counts. Over weeks
// of scheduled runs this turns into the interesting signal: an orphan
// count that keeps climbing means helpers are being abandoned faster than
// they are cleaned up.
//
// The integration is optional. When disabled in config, Connect returns
// ErrDisabled and the caller runs without metrics. Writes are batched and
// non-blocking; failures surface through the SetOnError callback.
package influxdb
