package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/jrwynneiii/mrconsole/config"
	"github.com/jrwynneiii/mrconsole/ddc"
	"github.com/jrwynneiii/mrconsole/sequence"
	"github.com/jrwynneiii/mrconsole/tui"
	"github.com/jrwynneiii/mrconsole/unroll"

	"github.com/knadh/koanf/parsers/hcl"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var configFile = koanf.New(".")

func getConfigPath() string {
	paths := []string{"/etc/mrconsole/config.hcl"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "mrconsole", "config.hcl"))
	}
	paths = append(paths, "./config.hcl")
	for _, path := range paths {
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			log.Infof("Found config file: %s", path)
			return path
		}
	}
	log.Info("Config file not found!")
	return ""
}

func loadConfig(path string) {
	if path == "" {
		path = getConfigPath()
	}
	if err := configFile.Load(file.Provider(path), hcl.Parser(true)); err != nil {
		log.Errorf("Could not read config file: %v", err)
		log.Error("Attempting to use environment variables")
		configFile.Load(env.Provider("", env.Opt{
			Prefix: "MRCONSOLE_",
			TransformFunc: func(k, v string) (string, any) {
				key := strings.ToLower(strings.TrimPrefix(k, "MRCONSOLE_"))
				k = strings.Replace(key, "_", ".", 1)
				log.Debugf("Found config env var: %s=%v", k, v)
				return k, v
			},
		}), nil)
	}
}

func calibration() unroll.Calibration {
	cal, err := config.LoadCalibration(configFile).Calibration(config.LoadWiring(configFile))
	if err != nil {
		log.Fatalf("Invalid calibration: %v", err)
	}
	return cal
}

func unrollFile(path string, cal unroll.Calibration) (*sequence.Sequence, *unroll.UnrolledSequence) {
	seq, err := sequence.Load(path)
	if err != nil {
		log.Fatalf("Could not load sequence: %v", err)
	}
	u, err := unroll.Unroll(seq, cal)
	if err != nil {
		log.Fatalf("Could not unroll %s: %v", path, err)
	}
	return seq, u
}

func writeFile(path string, data any) error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, data); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func readRaw(path string) ([]int16, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(b)%2 != 0 {
		return nil, fmt.Errorf("%s: odd number of bytes for int16 samples", path)
	}
	raw := make([]int16, len(b)/2)
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func runUnroll() {
	cal := calibration()
	seq, u := unrollFile(cli.Unroll.Sequence, cal)

	log.Infof("Unrolled %q: %d blocks, %d samples (%.3f ms) on %d channels",
		seq.Name, len(seq.Blocks), u.SampleCount, u.Duration*1e3, len(u.Channels))
	log.Infof("ADC: %d samples in %d readouts", u.ADCCount, u.ReadoutCount())
	for i, w := range u.ADCWindows {
		log.Debugf("Readout %d: samples [%d, %d)", i, w.Start, w.Start+w.Length)
	}

	if cli.Unroll.Interleaved != "" {
		if err := writeFile(cli.Unroll.Interleaved, u.Interleave()); err != nil {
			log.Fatalf("Could not write %s: %v", cli.Unroll.Interleaved, err)
		}
		log.Infof("Wrote %d words to %s", len(u.Channels)*u.SampleCount, cli.Unroll.Interleaved)
	}
}

func runDDC() {
	cal := calibration()
	pipeline, err := config.LoadDDC(configFile).Pipeline(cal.LarmorFrequency, cal.DwellTime)
	if err != nil {
		log.Fatalf("Invalid ddc configuration: %v", err)
	}

	raw, err := readRaw(cli.Ddc.Input)
	if err != nil {
		log.Fatalf("Could not read capture: %v", err)
	}
	acq, err := ddc.SplitReadouts(raw, cli.Ddc.Coils, cli.Ddc.Readout)
	if err != nil {
		log.Fatalf("Could not split capture: %v", err)
	}

	signal, err := pipeline.ProcessAcquisition(acq)
	if err != nil {
		log.Fatalf("Down-conversion failed: %v", err)
	}
	log.Infof("Down-converted %d readouts to %d samples each at %.3f kHz",
		len(signal.Readouts), pipeline.OutputLength(cli.Ddc.Readout), pipeline.OutputRate()/1e3)

	var out []complex64
	for _, k := range acq.Keys() {
		samples := signal.Readouts[k]
		if len(samples) == 0 {
			continue
		}
		snr, err := ddc.SNRWithBandwidth(ddc.Spectrum(samples), signal.DwellTime, cli.Ddc.Window)
		if err != nil {
			log.Warnf("Coil %d readout %d: no SNR estimate: %v", k.Coil, k.Readout, err)
		} else {
			log.Infof("Coil %d readout %d: SNR %.1f dB", k.Coil, k.Readout, snr)
		}
		for _, v := range samples {
			out = append(out, complex64(v))
		}
	}

	if cli.Ddc.Output != "" {
		if err := writeFile(cli.Ddc.Output, out); err != nil {
			log.Fatalf("Could not write %s: %v", cli.Ddc.Output, err)
		}
		log.Infof("Wrote %d samples to %s", len(out), cli.Ddc.Output)
	}
}

func main() {
	log.Info("Starting mrconsole")
	flags := kong.Parse(&cli)
	if cli.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	loadConfig(cli.Config)

	switch flags.Command() {
	case "unroll":
		runUnroll()
	case "ddc":
		runDDC()
	case "inspect":
		seq, u := unrollFile(cli.Inspect.Sequence, calibration())
		tui.StartUI(seq, u, config.LoadTui(configFile))
	default:
		log.Info("Command not recognized")
	}
}
