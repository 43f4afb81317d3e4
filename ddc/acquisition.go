package ddc

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
)

// ReadoutKey identifies one readout of one receive coil.
type ReadoutKey struct {
	Coil    int
	Readout int
}

func compareKeys(a, b ReadoutKey) int {
	return cmp.Or(cmp.Compare(a.Readout, b.Readout), cmp.Compare(a.Coil, b.Coil))
}

// RawAcquisition holds the raw receiver words of every readout.
type RawAcquisition map[ReadoutKey][]int16

// Keys returns the readouts sorted by readout index, then coil.
func (a RawAcquisition) Keys() []ReadoutKey {
	keys := make([]ReadoutKey, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)
	return keys
}

// BasebandSignal holds the down-converted readouts and their sample period.
type BasebandSignal struct {
	DwellTime float64
	Readouts  map[ReadoutKey][]complex128
}

// SplitReadouts cuts a raw capture into readouts. The capture holds
// consecutive readouts of length samples, each stored as frames of one
// word per coil.
func SplitReadouts(raw []int16, coils, length int) (RawAcquisition, error) {
	if coils < 1 || length < 1 {
		return nil, fmt.Errorf("split %d coils of %d samples: %w", coils, length, ErrInvalidParameter)
	}
	frame := coils * length
	if len(raw)%frame != 0 {
		return nil, fmt.Errorf("capture of %d words is not a whole number of %d coil readouts of %d samples: %w",
			len(raw), coils, length, ErrInvalidParameter)
	}

	acq := make(RawAcquisition, len(raw)/length)
	for r := range len(raw) / frame {
		block := raw[r*frame : (r+1)*frame]
		for c := range coils {
			samples := make([]int16, length)
			for n := range samples {
				samples[n] = block[n*coils+c]
			}
			acq[ReadoutKey{Coil: c, Readout: r}] = samples
		}
	}
	return acq, nil
}

// ProcessAcquisition runs Process on every readout, at most Workers at a
// time. The result does not depend on the number of workers. When several
// readouts fail the error of the first in Keys order is returned.
func (p *Pipeline) ProcessAcquisition(acq RawAcquisition) (BasebandSignal, error) {
	keys := acq.Keys()
	results := make([][]complex128, len(keys))
	errs := make([]error, len(keys))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for range min(max(p.Workers, 1), len(keys)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i], errs[i] = p.Process(acq[keys[i]])
			}
		}()
	}
	for i := range keys {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	out := BasebandSignal{
		DwellTime: 1 / p.OutputRate(),
		Readouts:  make(map[ReadoutKey][]complex128, len(keys)),
	}
	for i, k := range keys {
		if errs[i] != nil {
			return BasebandSignal{}, fmt.Errorf("coil %d readout %d: %w", k.Coil, k.Readout, errs[i])
		}
		out.Readouts[k] = results[i]
	}

	log.Debugf("[ddc] Processed %d readouts with %d workers", len(keys), p.Workers)
	return out, nil
}
