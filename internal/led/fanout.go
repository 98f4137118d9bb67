package led

import "errors"

// Fanout writes every frame to each of its drivers in order.
type Fanout []Driver

func (f Fanout) Write(rgb []byte) error {
	var errs []error
	for _, d := range f {
		if err := d.Write(rgb); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Close() error {
	var errs []error
	for _, d := range f {
		if err := d.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
