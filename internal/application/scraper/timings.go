package scraper

import (
	"context"
	"time"
)

// Timings esperas acotadas del robot. Toda espera tiene timeout e intervalo fijos.
type Timings struct {
	ActionDelay time.Duration // tras navegar/enviar en el login

	LoginTimeout  time.Duration
	LoginInterval time.Duration

	PostLoginSettle time.Duration
	MenuSettle      time.Duration

	ElementTimeout  time.Duration // botones XML/PDF
	ElementInterval time.Duration

	DownloadTimeout  time.Duration
	DownloadInterval time.Duration

	CertButtonTimeout  time.Duration
	CertPickerTimeout  time.Duration
	CertPollInterval   time.Duration
	CertPopupSettle    time.Duration
	CertKeypressSettle time.Duration

	FlyoutSettle   time.Duration // tras abrir el menú de acciones de la fila
	ViewSettle     time.Duration // tras "Visualizar"
	BeforeReturn   time.Duration // antes de cerrar pestaña / volver
	ReturnSettle   time.Duration // tras cerrar pestaña / volver
	NextPageSettle time.Duration
}

// DefaultTimings valores observados contra el portal real.
func DefaultTimings(actionDelay time.Duration) Timings {
	if actionDelay <= 0 {
		actionDelay = 3500 * time.Millisecond
	}
	return Timings{
		ActionDelay:        actionDelay,
		LoginTimeout:       60 * time.Second,
		LoginInterval:      2 * time.Second,
		PostLoginSettle:    3 * time.Second,
		MenuSettle:         5 * time.Second,
		ElementTimeout:     25 * time.Second,
		ElementInterval:    time.Second,
		DownloadTimeout:    40 * time.Second,
		DownloadInterval:   time.Second,
		CertButtonTimeout:  30 * time.Second,
		CertPickerTimeout:  40 * time.Second,
		CertPollInterval:   time.Second,
		CertPopupSettle:    3 * time.Second,
		CertKeypressSettle: 500 * time.Millisecond,
		FlyoutSettle:       1500 * time.Millisecond,
		ViewSettle:         3 * time.Second,
		BeforeReturn:       2 * time.Second,
		ReturnSettle:       3 * time.Second,
		NextPageSettle:     4 * time.Second,
	}
}

// sleep espera d o hasta que ctx termine.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// poll llama fn hasta que devuelva true, el timeout venza o ctx termine.
// fn se evalúa al menos una vez. Devuelve false si venció el tiempo.
func poll(ctx context.Context, timeout, interval time.Duration, fn func() bool) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		if fn() {
			return true, nil
		}
		if !time.Now().Before(deadline) {
			return false, nil
		}
		wait := interval
		if rest := time.Until(deadline); rest < wait {
			wait = rest
		}
		if err := sleep(ctx, wait); err != nil {
			return false, err
		}
	}
}
