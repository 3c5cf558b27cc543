// Package jitter предоставляет интервалы отступления (backoff) для повторных попыток:
// фиксированные и экспоненциальные, с необязательной случайной добавкой.
package jitter

import (
	"math/rand"
	"sync"
	"time"
)

// DefaultJitter — стандартный коэффициент джиттера (50%)
const DefaultJitter = 0.5

var (
	globalRand = rand.New(rand.NewSource(time.Now().UnixNano()))
	randMutex  sync.Mutex
)

// Duration возвращает продолжительность с применённым джиттером в диапазоне [d, d*(1+jitterFactor)].
// При jitterFactor <= 0 возвращает d без изменений.
func Duration(d time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 || d <= 0 {
		return d
	}

	randMutex.Lock()
	extra := globalRand.Float64() * jitterFactor * float64(d)
	randMutex.Unlock()

	return d + time.Duration(extra)
}

// ExponentialBackoff вычисляет экспоненциальное отступление с джиттером.
// attempt нумеруется с нуля, результат до джиттера не превышает max.
func ExponentialBackoff(base, max time.Duration, attempt int, jitterFactor float64) time.Duration {
	backoff := base
	for i := 0; i < attempt; i++ {
		backoff *= 2
		if backoff > max {
			backoff = max
			break
		}
	}

	return Duration(backoff, jitterFactor)
}

// Strategy описывает, сколько ждать перед повтором номер attempt (с нуля).
type Strategy func(attempt int) time.Duration

// Fixed — одинаковая пауза между всеми попытками.
func Fixed(d time.Duration, jitterFactor float64) Strategy {
	return func(int) time.Duration {
		return Duration(d, jitterFactor)
	}
}

// Exponential — удваивающаяся пауза с потолком max.
func Exponential(base, max time.Duration, jitterFactor float64) Strategy {
	return func(attempt int) time.Duration {
		return ExponentialBackoff(base, max, attempt, jitterFactor)
	}
}
