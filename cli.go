package main

var cli struct {
	Verbose bool   `help:"Prints debug output by default"`
	Config  string `help:"Path to the config file, searched for when empty" type:"path"`
	Unroll  struct {
		Sequence    string `help:"Sequence file (yaml)" required:"" type:"existingfile"`
		Interleaved string `help:"Write the interleaved card words as little-endian int16 to this file" type:"path"`
	} `cmd:"" help:"Unrolls a sequence into transmit card samples"`
	Ddc struct {
		Input   string  `help:"Raw little-endian int16 capture" required:"" type:"existingfile"`
		Coils   int     `help:"Number of receive coils in the capture" default:"1"`
		Readout int     `help:"Samples per readout and coil" required:""`
		Output  string  `help:"Write the baseband readouts as little-endian complex64 to this file" type:"path"`
		Window  float64 `help:"Signal window width in Hz excluded from the noise estimate" default:"3000"`
	} `cmd:"" help:"Down-converts a raw acquisition to baseband"`
	Inspect struct {
		Sequence string `help:"Sequence file (yaml)" required:"" type:"existingfile"`
	} `cmd:"" help:"Starts the TUI on an unrolled sequence"`
}
