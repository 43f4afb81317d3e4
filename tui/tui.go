package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"
	"github.com/jrwynneiii/mrconsole/config"
	"github.com/jrwynneiii/mrconsole/sequence"
	"github.com/jrwynneiii/mrconsole/unroll"
	"github.com/navidys/tvxwidgets"
	"github.com/rivo/tview"
)

// envelopeBandwidth is the low-pass cut off of the RF envelope preview in Hz.
const envelopeBandwidth = 100e3

var LogOut *tview.TextView

func newGauge(label string) *tvxwidgets.UtilModeGauge {
	g := tvxwidgets.NewUtilModeGauge()
	g.SetLabel(label)
	g.SetLabelColor(tcell.ColorLightSkyBlue)
	g.SetWarnPercentage(99)
	g.SetCritPercentage(100)
	g.SetEmptyColor(tcell.ColorBlack)
	g.SetBorder(false)
	return g
}

func dutyCycle(gate []bool) float64 {
	if len(gate) == 0 {
		return 0
	}
	n := 0
	for _, on := range gate {
		if on {
			n++
		}
	}
	return float64(n) / float64(len(gate)) * 100
}

// StartUI shows an unrolled sequence block by block. Selecting a block in
// the table plots its channels and RF envelope.
func StartUI(seq *sequence.Sequence, u *unroll.UnrolledSequence, tuiConf config.TuiConf) {
	app := tview.NewApplication()

	LogOut = tview.NewTextView().
		SetDynamicColors(true).
		SetRegions(true).
		SetWordWrap(true)

	blockData := &BlockTableData{Sequence: seq, Unrolled: u}
	summaryData := &SummaryTableData{Unrolled: u}
	blockTable := tview.NewTable().SetContent(blockData)
	summaryTable := tview.NewTable().SetContent(summaryData)

	channelPlot := tvxwidgets.NewPlot()
	channelPlot.SetLineColor([]tcell.Color{
		tcell.ColorLightSkyBlue,
		tcell.ColorGreen,
		tcell.ColorYellow,
		tcell.ColorRed,
	})
	channelPlot.SetMarker(tvxwidgets.PlotMarkerBraille)
	channelPlot.SetBorder(true)

	envelopePlot := tvxwidgets.NewPlot()
	envelopePlot.SetLineColor([]tcell.Color{tcell.ColorLightSkyBlue})
	envelopePlot.SetMarker(tvxwidgets.PlotMarkerBraille)
	envelopePlot.SetBorder(true)
	envelopePlot.SetTitle("RF Envelope")

	adcGauge := newGauge("ADC duty cycle:      ")
	adcGauge.SetValue(dutyCycle(u.ADCGate))
	rfGauge := newGauge("RF unblanked:        ")
	rfGauge.SetValue(dutyCycle(u.RFUnblanking))

	gaugeBox := tview.NewFlex()
	gaugeBox.SetDirection(tview.FlexRow)
	gaugeBox.AddItem(adcGauge, 0, 1, false)
	gaugeBox.AddItem(rfGauge, 0, 1, false)
	gaugeBox.SetTitle("Gates")
	gaugeBox.SetBorder(true)

	LogOut.SetChangedFunc(func() {
		LogOut.ScrollToEnd()
		app.Draw()
	})
	LogOut.SetBorder(true).SetTitle("Log Output")
	log.SetOutput(LogOut)

	showBlock := func(i int) {
		if i < 0 || i >= len(u.BlockStarts) {
			return
		}
		from, to := blockSpan(u, i)
		channelPlot.SetTitle(fmt.Sprintf("Block %d: rf gx gy gz", i))
		channelPlot.SetData(channelTraces(u, from, to, tuiConf.PlotPoints))

		if _, ok := seq.Blocks[i].RF(); ok {
			envelopePlot.SetData([][]float64{downsample(rfEnvelope(u, from, to, envelopeBandwidth), tuiConf.PlotPoints)})
		} else {
			envelopePlot.SetData([][]float64{{0, 0}})
		}
		log.Debugf("[tui] Showing block %d, samples [%d, %d)", i, from, to)
	}

	blockTable.SetFixed(1, 0)
	blockTable.SetSelectable(true, false).SetBorder(true).SetTitle(fmt.Sprintf("Blocks of %s", seq.Name))
	blockTable.SetSelectionChangedFunc(func(row, column int) {
		showBlock(row - 1)
	})
	summaryTable.SetSelectable(false, false).SetBorder(true).SetTitle("Sequence")

	page := tview.NewFlex().SetDirection(tview.FlexColumn)

	leftCol := tview.NewFlex().SetDirection(tview.FlexRow)
	leftCol.AddItem(blockTable, 0, 3, true)
	leftCol.AddItem(summaryTable, 0, 1, false)

	rightCol := tview.NewFlex().SetDirection(tview.FlexRow)
	rightCol.AddItem(channelPlot, 0, 3, false)
	rightCol.AddItem(envelopePlot, 0, 2, false)
	rightCol.AddItem(gaugeBox, 0, 1, false)
	rightCol.AddItem(LogOut, 0, 1, false)

	page.AddItem(leftCol, 0, 2, true)
	page.AddItem(rightCol, 0, 5, false)

	app.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Rune() == 'q' {
			app.Stop()
			return nil
		}
		return ev
	})

	showBlock(0)
	blockTable.Select(1, 0)

	go func() {
		for {
			time.Sleep(time.Duration(tuiConf.RefreshMs) * time.Millisecond)
			app.Draw()
		}
	}()

	if err := app.SetRoot(page, true).EnableMouse(true).Run(); err != nil {
		log.Fatalf("Could not start UI: %v", err)
	}
}
