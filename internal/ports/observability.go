package ports

type Observability interface {
	LogInfo(msg string, fields ...Field)
	LogError(msg string, err error, fields ...Field)
	LogCritical(msg string, err error, fields ...Field)

	IncCounter(name string, v float64)
	ObserveLatency(name string, seconds float64)

	SetGauge(name string, v float64)
	AddGauge(name string, delta float64)
}

type Field struct {
	Key   string
	Value any
}
