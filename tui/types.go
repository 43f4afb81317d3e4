package tui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/jrwynneiii/mrconsole/sequence"
	"github.com/jrwynneiii/mrconsole/unroll"
	"github.com/rivo/tview"
)

// BlockTableData lists every block of the unrolled sequence.
type BlockTableData struct {
	tview.TableContentReadOnly
	Sequence *sequence.Sequence
	Unrolled *unroll.UnrolledSequence
}

// SummaryTableData shows the totals of the unrolled sequence.
type SummaryTableData struct {
	tview.TableContentReadOnly
	Unrolled *unroll.UnrolledSequence
}

func eventKinds(b sequence.Block) string {
	kinds := make([]string, 0, len(b.Events))
	for _, ev := range b.Events {
		kinds = append(kinds, ev.Kind().String())
	}
	return strings.Join(kinds, ",")
}

// blockSpan returns the first and one past the last sample of block i.
func blockSpan(u *unroll.UnrolledSequence, i int) (int, int) {
	end := u.SampleCount
	if i+1 < len(u.BlockStarts) {
		end = u.BlockStarts[i+1]
	}
	return u.BlockStarts[i], end
}

func (d *BlockTableData) GetRowCount() int {
	return len(d.Sequence.Blocks) + 1
}

func (d *BlockTableData) GetColumnCount() int {
	return 5
}

func (d *BlockTableData) GetCell(row, column int) *tview.TableCell {
	if row == 0 {
		switch column {
		case 0:
			return tview.NewTableCell("[lightskyblue]Block ").SetSelectable(false)
		case 1:
			return tview.NewTableCell("[white]Start ").SetSelectable(false)
		case 2:
			return tview.NewTableCell("[white]Samples ").SetSelectable(false)
		case 3:
			return tview.NewTableCell("[white]Duration (us) ").SetSelectable(false)
		case 4:
			return tview.NewTableCell("[green]Events").SetSelectable(false)
		}
		return tview.NewTableCell("ERROR")
	}

	i := row - 1
	from, to := blockSpan(d.Unrolled, i)
	b := d.Sequence.Blocks[i]
	switch column {
	case 0:
		return tview.NewTableCell(fmt.Sprintf("[lightskyblue]%d", i))
	case 1:
		return tview.NewTableCell(fmt.Sprintf("[white]%d", from))
	case 2:
		return tview.NewTableCell(fmt.Sprintf("[white]%d", to-from))
	case 3:
		return tview.NewTableCell(fmt.Sprintf("[white]%.3f", b.Duration*1e6))
	case 4:
		if len(b.Events) == 0 {
			return tview.NewTableCell("[red]-")
		}
		return tview.NewTableCell("[green]" + eventKinds(b))
	}
	return tview.NewTableCell("ERROR")
}

func (s *SummaryTableData) GetRowCount() int {
	return 5
}

func (s *SummaryTableData) GetColumnCount() int {
	return 2
}

func (s *SummaryTableData) GetCell(row, column int) *tview.TableCell {
	u := s.Unrolled
	labels := []string{"Samples:", "Duration:", "ADC samples:", "Readouts:", "Larmor frequency:"}
	if row >= len(labels) {
		return tview.NewTableCell("ERROR")
	}
	if column == 0 {
		return tview.NewTableCell(labels[row])
	}

	switch row {
	case 0:
		return tview.NewTableCell(fmt.Sprintf("%d", u.SampleCount))
	case 1:
		return tview.NewTableCell(fmt.Sprintf("%.3f ms", u.Duration*1e3))
	case 2:
		color := tcell.ColorGreen
		if u.ADCCount == 0 {
			color = tcell.ColorRed
		}
		return tview.NewTableCell(fmt.Sprintf("%d", u.ADCCount)).SetTextColor(color)
	case 3:
		return tview.NewTableCell(fmt.Sprintf("%d", u.ReadoutCount()))
	case 4:
		return tview.NewTableCell(fmt.Sprintf("%.6f MHz", u.LarmorFrequency/1e6))
	}
	return tview.NewTableCell("ERROR")
}
