package ports

import "time"

// JournalPolicy bounds the publish journal.
type JournalPolicy struct {
	MaxQueueLen  int           `yaml:"max_queue_len"`
	MaxBatchSize int           `yaml:"max_batch_size"`
	IdleSleep    time.Duration `yaml:"idle_sleep"`
}
