package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	apigen "github.com/ensigniasec/cleaner-client/internal/api-gen"
)

//nolint:gochecknoglobals // flag bindings.
var (
	processSort  string
	processLimit int
)

//nolint:gochecknoinits // Cobra flag wiring.
func init() {
	processesCmd.Flags().StringVar(&processSort, "sort", "cpu", "Sort processes by cpu or memory")
	processesCmd.Flags().IntVar(&processLimit, "limit", 10, "Number of processes to list")
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show hardware and operating system information",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		info, err := a.client.SystemInfo(cmd.Context())
		if err != nil {
			fail(err)
		}
		if jsonOutput {
			printJSON(info)
			return
		}
		printSystemInfo(info)
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backend status",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		st, err := a.client.ServerStatus(cmd.Context())
		if err != nil {
			fail(err)
		}
		if jsonOutput {
			printJSON(st)
			return
		}
		uptime := time.Duration(st.Uptime * float64(time.Second)).Truncate(time.Second)
		fmt.Fprintf(os.Stdout, "Server:    %s (%s)\n", st.ServerStatus, a.cfg.APIURL)
		fmt.Fprintf(os.Stdout, "Uptime:    %s\n", uptime)
		fmt.Fprintf(os.Stdout, "Scans:     %d active\n", st.ActiveScans)
		fmt.Fprintf(os.Stdout, "Clients:   %d connected\n", st.ConnectedClients)
		fmt.Fprintf(os.Stdout, "CPU:       %.1f%%\n", st.CPUUsage)
		fmt.Fprintf(os.Stdout, "Memory:    %.1f%%\n", st.MemoryUsage)
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show current CPU, memory, disk and network usage",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		u, err := a.client.SystemUsage(cmd.Context())
		if err != nil {
			fail(err)
		}
		if jsonOutput {
			printJSON(u)
			return
		}
		fmt.Fprintf(os.Stdout, "CPU:       %.1f%% (%d cores)\n", u.CPU.Overall, len(u.CPU.PerCore))
		fmt.Fprintf(os.Stdout, "Memory:    %.1f%% (%s used, %s available)\n",
			u.Memory.Percent, humanBytes(u.Memory.Used), humanBytes(u.Memory.Available))
		fmt.Fprintf(os.Stdout, "Disk I/O:  read %s, write %s\n", rate(u.DiskIO.Read), rate(u.DiskIO.Write))
		fmt.Fprintf(os.Stdout, "Network:   sent %s, received %s\n", rate(u.Network.Sent), rate(u.Network.Recv))
		if u.GPU.Usage != nil {
			fmt.Fprintf(os.Stdout, "GPU:       %.1f%%\n", *u.GPU.Usage)
		}
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var processesCmd = &cobra.Command{
	Use:   "processes",
	Short: "List the busiest processes",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		list, err := a.client.TopProcesses(cmd.Context(), apigen.ProcessesParams{SortBy: &processSort, Limit: &processLimit})
		if err != nil {
			fail(err)
		}
		if jsonOutput {
			printJSON(list)
			return
		}
		t := newTable("PID", "NAME", "CPU", "MEM", "RSS", "THREADS", "STATUS")
		for _, p := range list.Processes {
			t.Row(
				strconv.Itoa(p.PID),
				p.Name,
				fmt.Sprintf("%.1f%%", p.CPUPercent),
				fmt.Sprintf("%.1f%%", p.MemoryPercent),
				humanBytes(p.MemoryRSS),
				strconv.Itoa(p.NumThreads),
				p.Status,
			)
		}
		fmt.Fprintln(os.Stdout, t.Render())
	},
}

func printSystemInfo(info apigen.SystemInfo) {
	fmt.Fprintf(os.Stdout, "OS:        %s\n", info.OS)
	fmt.Fprintf(os.Stdout, "CPU:       %s, %d cores / %d threads @ %.0f MHz (%.1f%%)\n",
		info.CPU.Model, info.CPU.Cores, info.CPU.Threads, info.CPU.Frequency, info.CPU.Usage)
	fmt.Fprintf(os.Stdout, "Memory:    %s total, %s available (%.1f%%)\n",
		humanBytes(info.Memory.Total), humanBytes(info.Memory.Available), info.Memory.Usage)
	if g := info.GPU; g != nil && g.Name != nil {
		mem := "unknown memory"
		if g.Memory != nil {
			mem = humanBytes(*g.Memory)
		}
		fmt.Fprintf(os.Stdout, "GPU:       %s, %s (%.1f%%)\n", *g.Name, mem, g.Usage)
	}

	if len(info.Disk) > 0 {
		t := newTable("DEVICE", "TOTAL", "FREE", "USED")
		for _, d := range info.Disk {
			t.Row(d.Device, humanBytes(d.Total), humanBytes(d.Free), fmt.Sprintf("%.1f%%", d.Percent))
		}
		fmt.Fprintln(os.Stdout, t.Render())
	}
	if len(info.Network) > 0 {
		t := newTable("INTERFACE", "UP", "SPEED")
		for _, n := range info.Network {
			t.Row(n.Interface, strconv.FormatBool(n.IsUp), fmt.Sprintf("%.0f Mbit/s", n.Speed))
		}
		fmt.Fprintln(os.Stdout, t.Render())
	}
}

func newTable(headers ...string) *table.Table {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
}

func humanBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

func rate(perSecond float64) string {
	if perSecond < 0 {
		perSecond = 0
	}
	return humanize.IBytes(uint64(perSecond)) + "/s"
}
