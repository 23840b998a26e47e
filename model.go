package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

type viewMode int

const (
	folderView viewMode = iota
	fileView
)

type confirmState struct {
	active bool
	folder *BackupFolder
	file   *FileEntry
}

type scanStreamMsg struct {
	ID int
	Ch <-chan tea.Msg
}

type scanFolderMsg struct {
	ID     int
	Folder *BackupFolder
}

type scanProgressMsg struct {
	ID      int
	Visited int
	Found   int
}

type scanFinishedMsg struct {
	ID      int
	Err     error
	Elapsed time.Duration
	Visited int
	Found   int
}

type scanPulseMsg struct{}

type keyMap struct {
	Open          key.Binding
	Back          key.Binding
	Delete        key.Binding
	Rescan        key.Binding
	ToggleConfirm key.Binding
	Help          key.Binding
	Quit          key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Rescan: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rescan"),
		),
		ToggleConfirm: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "toggle confirm"),
		),
		Help: key.NewBinding(
			key.WithKeys("?", "h"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Back, k.Delete, k.Rescan, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Open, k.Back, k.Delete}, {k.Rescan, k.ToggleConfirm, k.Help, k.Quit}}
}

type model struct {
	table          table.Model
	spinner        spinner.Model
	help           help.Model
	keys           keyMap
	inv            *Inventory
	clean          *cleaner
	pending        []*BackupFolder
	mode           viewMode
	current        *BackupFolder
	loading        bool
	err            error
	lastScan       time.Duration
	lastEvent      string
	confirm        confirmState
	confirmDeletes bool
	emptyResult    bool
	width          int
	height         int
	scanOpts       ScanOptions
	scanID         int
	baseCtx        context.Context
	baseCancel     context.CancelFunc
	scanCtx        context.Context
	scanCancel     context.CancelFunc
	scanStream     <-chan tea.Msg
	scanVisited    int
	scanFound      int
	scanStart      time.Time
	scanPulse      float64
	scanPulseDir   float64
	scanProgress   progress.Model
	log            *zap.Logger
}

type styles struct {
	base      lipgloss.Style
	header    lipgloss.Style
	title     lipgloss.Style
	subtitle  lipgloss.Style
	status    lipgloss.Style
	muted     lipgloss.Style
	accent    lipgloss.Style
	danger    lipgloss.Style
	confirm   lipgloss.Style
	chip      lipgloss.Style
	container lipgloss.Style
}

var ui = styles{
	base: lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("238")),
	container: lipgloss.NewStyle().Padding(0, 1),
	header:    lipgloss.NewStyle().Padding(0, 1),
	title:     lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
	subtitle:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	status:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
	muted:     lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	accent:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
	danger:    lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
	confirm:   lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("203")).Bold(true).Padding(0, 1),
	chip:      lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("62")).Padding(0, 1),
}

func NewModel(ctx context.Context, opts ScanOptions, confirmDeletes bool, logger *zap.Logger) model {
	baseCtx, baseCancel := context.WithCancel(ctx)
	scanCtx, scanCancel := context.WithCancel(baseCtx)

	if logger == nil {
		logger = zap.NewNop()
	}

	t := table.New(
		table.WithColumns(folderColumns(60)),
		table.WithFocused(true),
	)

	tableStyles := table.DefaultStyles()
	tableStyles.Header = tableStyles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("238")).
		BorderBottom(true).
		Bold(true)
	tableStyles.Selected = tableStyles.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(true)
	t.SetStyles(tableStyles)

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))

	scanBar := progress.New(
		progress.WithDefaultGradient(),
		progress.WithoutPercentage(),
	)

	return model{
		table:          t,
		spinner:        sp,
		help:           help.New(),
		keys:           newKeyMap(),
		loading:        true,
		scanOpts:       opts,
		scanID:         1,
		baseCtx:        baseCtx,
		baseCancel:     baseCancel,
		scanCtx:        scanCtx,
		scanCancel:     scanCancel,
		scanStart:      time.Now(),
		scanPulseDir:   1,
		scanProgress:   scanBar,
		confirmDeletes: confirmDeletes,
		log:            logger,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, scanStartCmd(m.scanCtx, m.scanOpts, m.scanID), scanPulseCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.updateLayout(msg.Width, msg.Height)
	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	case scanStreamMsg:
		if msg.ID != m.scanID {
			break
		}
		m.scanStream = msg.Ch
		cmds = append(cmds, waitScanMsg(msg.Ch))
	case scanFolderMsg:
		if msg.ID != m.scanID {
			break
		}
		m.pending = append(m.pending, msg.Folder)
		m.scanFound++
		m.setTableRows()
		m.lastEvent = fmt.Sprintf("Found: %s", msg.Folder.RelPath)
		if m.scanStream != nil {
			cmds = append(cmds, waitScanMsg(m.scanStream))
		}
	case scanProgressMsg:
		if msg.ID != m.scanID {
			break
		}
		m.scanVisited = msg.Visited
		m.scanFound = msg.Found
		if m.scanStream != nil {
			cmds = append(cmds, waitScanMsg(m.scanStream))
		}
	case scanFinishedMsg:
		if msg.ID != m.scanID {
			break
		}
		m.loading = false
		m.err = msg.Err
		m.lastScan = msg.Elapsed
		m.scanVisited = msg.Visited
		m.scanFound = msg.Found
		m.inv = newInventory(m.pending)
		m.pending = nil
		m.clean = newCleaner(m.scanOpts.RootHandle, m.inv, m.log)
		if msg.Err == nil && len(m.inv.Folders) == 0 {
			m.emptyResult = true
			if m.baseCancel != nil {
				m.baseCancel()
			}
			return m, tea.Quit
		}
		m.setTableRows()
		if msg.Err == nil {
			m.lastEvent = fmt.Sprintf("Scan complete: %d backup folder(s)", len(m.inv.Folders))
		} else {
			m.lastEvent = fmt.Sprintf("Scan failed: %v", msg.Err)
		}
	case scanPulseMsg:
		if m.loading {
			m.scanPulse += 0.06 * m.scanPulseDir
			if m.scanPulse >= 1 {
				m.scanPulse = 1
				m.scanPulseDir = -1
			} else if m.scanPulse <= 0 {
				m.scanPulse = 0
				m.scanPulseDir = 1
			}
			cmds = append(cmds, scanPulseCmd())
		}
	case tea.KeyMsg:
		if m.confirm.active {
			switch msg.String() {
			case "y", "Y":
				pendingConfirm := m.confirm
				m.confirm = confirmState{}
				if pendingConfirm.file != nil {
					m.deleteFileNow(pendingConfirm.folder, pendingConfirm.file)
				} else if pendingConfirm.folder != nil {
					m.deleteFolderNow(pendingConfirm.folder)
				}
			case "n", "N", "esc":
				m.confirm = confirmState{}
				m.lastEvent = "Deletion cancelled"
			}
			break
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			if m.baseCancel != nil {
				m.baseCancel()
			}
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Rescan):
			var scanCmds []tea.Cmd
			m, scanCmds = m.startScan()
			cmds = append(cmds, scanCmds...)
		case key.Matches(msg, m.keys.Open):
			m.openSelected()
		case key.Matches(msg, m.keys.Back):
			m.closeFolder()
		case key.Matches(msg, m.keys.Delete):
			m.requestDelete()
		case key.Matches(msg, m.keys.ToggleConfirm):
			m.confirmDeletes = !m.confirmDeletes
			if m.confirmDeletes {
				m.lastEvent = "Confirm prompts enabled"
			} else {
				m.lastEvent = "Confirm prompts disabled"
			}
		}
	}

	if !m.confirm.active {
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	if m.width == 0 {
		return "Loading…"
	}

	content := ui.base.Render(m.table.View())
	view := lipgloss.JoinVertical(
		lipgloss.Left,
		m.headerView(),
		content,
		m.statusView(),
		m.footerView(),
	)
	return ui.container.Render(view)
}

func folderColumns(pathWidth int) []table.Column {
	return []table.Column{
		{Title: "Folder", Width: pathWidth},
		{Title: "Size", Width: 10},
		{Title: "Files", Width: 6},
		{Title: "Modified", Width: 16},
	}
}

func fileColumns(nameWidth int) []table.Column {
	return []table.Column{
		{Title: "Archive", Width: nameWidth},
		{Title: "Size", Width: 10},
		{Title: "Modified", Width: 16},
	}
}

func (m *model) updateLayout(width, height int) {
	if width == 0 || height == 0 {
		return
	}
	if width < 60 {
		width = 60
	}
	if height < 12 {
		height = 12
	}
	m.width = width
	m.height = height

	m.setTableColumns()

	headerHeight := lipgloss.Height(m.headerView())
	statusHeight := lipgloss.Height(m.statusView())
	footerHeight := lipgloss.Height(m.footerView())
	available := max(height-headerHeight-statusHeight-footerHeight-4, 5)
	m.table.SetHeight(available)
	m.table.SetWidth(width - 4)
	m.scanProgress.Width = max(width-28, 20)
}

func (m *model) setTableColumns() {
	width := m.width
	if width == 0 {
		width = 80
	}
	if m.mode == fileView {
		nameWidth := max(width-10-16-10, 20)
		m.table.SetColumns(fileColumns(nameWidth))
		return
	}
	pathWidth := max(width-10-6-16-12, 20)
	m.table.SetColumns(folderColumns(pathWidth))
}

func (m model) startScan() (model, []tea.Cmd) {
	if m.scanCancel != nil {
		m.scanCancel()
	}
	ctx, cancel := context.WithCancel(m.baseCtx)
	m.scanCtx = ctx
	m.scanCancel = cancel
	m.scanID++
	m.loading = true
	m.err = nil
	m.inv = nil
	m.clean = nil
	m.pending = nil
	m.mode = folderView
	m.current = nil
	m.confirm = confirmState{}
	m.scanVisited = 0
	m.scanFound = 0
	m.lastScan = 0
	m.scanStart = time.Now()
	m.scanPulse = 0
	m.scanPulseDir = 1
	m.lastEvent = "Scanning…"
	m.setTableColumns()
	m.setTableRows()

	cmds := []tea.Cmd{m.spinner.Tick, scanStartCmd(ctx, m.scanOpts, m.scanID), scanPulseCmd()}
	return m, cmds
}

func (m model) headerView() string {
	title := ui.title.Render("wpsweep")
	subtitle := ui.subtitle.Render("Reclaim disk from WP migration backups")
	root := ui.muted.Render(fmt.Sprintf("Root: %s", m.scanOpts.Root))
	reclaimed := ui.chip.Render(fmt.Sprintf("reclaimed: %s", humanize.IBytes(uint64(m.reclaimedBytes()))))
	line := lipgloss.JoinHorizontal(lipgloss.Left, title, " ", reclaimed)
	second := lipgloss.JoinHorizontal(lipgloss.Left, subtitle, " · ", root)
	if m.mode == fileView && m.current != nil {
		second = lipgloss.JoinHorizontal(lipgloss.Left, subtitle, " · ", ui.muted.Render(fmt.Sprintf("Folder: %s", m.current.RelPath)))
	}
	return ui.header.Render(lipgloss.JoinVertical(lipgloss.Left, line, second))
}

func (m model) statusView() string {
	if m.loading {
		elapsed := time.Since(m.scanStart).Truncate(100 * time.Millisecond)
		line := fmt.Sprintf("%s Scanning… visited %d · found %d · %s", m.spinner.View(), m.scanVisited, m.scanFound, elapsed)
		bar := m.scanProgress.ViewAs(m.scanPulse)
		return lipgloss.JoinVertical(lipgloss.Left, ui.status.Render(line), ui.muted.Render(bar))
	}

	parts := []string{}
	if m.mode == fileView && m.current != nil {
		files := m.current.VisibleFiles()
		parts = append(parts,
			fmt.Sprintf("Archives: %d", len(files)),
			fmt.Sprintf("Folder total: %s", humanize.IBytes(uint64(m.current.TotalSize))),
		)
	} else if m.inv != nil {
		parts = append(parts,
			fmt.Sprintf("Folders: %d", len(m.inv.VisibleFolders())),
			fmt.Sprintf("Total: %s", humanize.IBytes(uint64(m.inv.VisibleSize()))),
		)
	}
	parts = append(parts,
		fmt.Sprintf("Reclaimed: %s", humanize.IBytes(uint64(m.reclaimedBytes()))),
		fmt.Sprintf("Confirm: %s", boolLabel(m.confirmDeletes)),
	)
	if m.lastScan > 0 {
		parts = append(parts, fmt.Sprintf("Scan: %s", m.lastScan.Truncate(10*time.Millisecond)))
	}
	status := strings.Join(parts, " · ")
	if m.err != nil {
		status = ui.danger.Render(fmt.Sprintf("Error: %v", m.err))
	}
	return ui.status.Render(status)
}

func (m model) footerView() string {
	if m.confirm.active {
		label := "Confirm delete? (y/n)"
		if m.confirm.file != nil {
			label = fmt.Sprintf("Delete %s? (y/n)", m.confirm.file.Name)
		} else if m.confirm.folder != nil {
			label = fmt.Sprintf("Delete %d archive(s) in %s? (y/n)", m.confirm.folder.FileCount(), m.confirm.folder.RelPath)
		}
		return ui.confirm.Render(label)
	}
	if m.lastEvent != "" {
		return lipgloss.JoinVertical(lipgloss.Left, ui.muted.Render(m.lastEvent), m.help.View(m.keys))
	}
	return m.help.View(m.keys)
}

// setTableRows rebuilds the table from the visible subset for the
// current view. Every mutation goes through here before a selection
// index is interpreted again.
func (m *model) setTableRows() {
	if m.mode == fileView && m.current != nil {
		files := m.current.VisibleFiles()
		rows := make([]table.Row, 0, len(files))
		for _, file := range files {
			rows = append(rows, table.Row{
				file.Name,
				humanize.IBytes(uint64(file.Size)),
				humanize.Time(file.ModTime),
			})
		}
		m.table.SetRows(rows)
		m.clampCursor(len(rows))
		return
	}

	folders := m.visibleFolders()
	rows := make([]table.Row, 0, len(folders))
	for _, folder := range folders {
		rows = append(rows, table.Row{
			folder.RelPath,
			humanize.IBytes(uint64(folder.TotalSize)),
			fmt.Sprintf("%d", folder.FileCount()),
			humanize.Time(folder.LastModified),
		})
	}
	m.table.SetRows(rows)
	m.clampCursor(len(rows))
}

func (m *model) clampCursor(rowCount int) {
	if rowCount == 0 {
		m.table.SetCursor(0)
		return
	}
	if m.table.Cursor() >= rowCount {
		m.table.SetCursor(rowCount - 1)
	}
}

// visibleFolders reads from the inventory once the scan has finished and
// from the streamed results while it is still running.
func (m model) visibleFolders() []*BackupFolder {
	if m.inv != nil {
		return m.inv.VisibleFolders()
	}
	return m.pending
}

func (m model) reclaimedBytes() int64 {
	if m.inv == nil {
		return 0
	}
	return m.inv.Reclaimed
}

func (m *model) openSelected() {
	if m.loading || m.mode != folderView || m.inv == nil {
		return
	}
	folders := m.inv.VisibleFolders()
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(folders) {
		return
	}
	m.current = folders[idx]
	m.mode = fileView
	m.setTableColumns()
	m.setTableRows()
	m.table.SetCursor(0)
	m.lastEvent = fmt.Sprintf("Opened %s", m.current.RelPath)
}

func (m *model) closeFolder() {
	if m.mode != fileView {
		return
	}
	m.mode = folderView
	m.current = nil
	m.setTableColumns()
	m.setTableRows()
}

func (m *model) requestDelete() {
	if m.loading || m.inv == nil {
		return
	}
	idx := m.table.Cursor()

	if m.mode == fileView {
		if m.current == nil {
			return
		}
		files := m.current.VisibleFiles()
		if idx < 0 || idx >= len(files) {
			return
		}
		file := files[idx]
		if m.confirmDeletes {
			m.confirm = confirmState{active: true, folder: m.current, file: file}
			return
		}
		m.deleteFileNow(m.current, file)
		return
	}

	folders := m.inv.VisibleFolders()
	if idx < 0 || idx >= len(folders) {
		return
	}
	folder := folders[idx]
	if m.confirmDeletes {
		m.confirm = confirmState{active: true, folder: folder}
		return
	}
	m.deleteFolderNow(folder)
}

func (m *model) deleteFileNow(folder *BackupFolder, file *FileEntry) {
	if m.clean == nil {
		return
	}
	if err := m.clean.DeleteFile(folder, file); err != nil {
		m.lastEvent = fmt.Sprintf("Delete failed: %s", file.Name)
		m.setTableRows()
		return
	}
	m.lastEvent = fmt.Sprintf("Deleted %s · freed %s", file.Name, humanize.IBytes(uint64(file.Size)))
	if folder.Deleted && m.mode == fileView && m.current == folder {
		m.lastEvent = fmt.Sprintf("Cleared %s · freed %s", folder.RelPath, humanize.IBytes(uint64(file.Size)))
		m.closeFolder()
		return
	}
	m.setTableRows()
}

func (m *model) deleteFolderNow(folder *BackupFolder) {
	if m.clean == nil {
		return
	}
	freed, failed := m.clean.DeleteFolder(folder)
	if failed > 0 {
		m.lastEvent = fmt.Sprintf("Removed %s · freed %s · %d file(s) failed", folder.RelPath, humanize.IBytes(uint64(freed)), failed)
	} else {
		m.lastEvent = fmt.Sprintf("Removed %s · freed %s", folder.RelPath, humanize.IBytes(uint64(freed)))
	}
	if m.mode == fileView && m.current == folder {
		m.closeFolder()
		return
	}
	m.setTableRows()
}

func scanStartCmd(ctx context.Context, opts ScanOptions, id int) tea.Cmd {
	return func() tea.Msg {
		ch := make(chan tea.Msg)
		go runScanStream(ctx, opts, id, ch)
		return scanStreamMsg{ID: id, Ch: ch}
	}
}

func waitScanMsg(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func scanPulseCmd() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(time.Time) tea.Msg {
		return scanPulseMsg{}
	})
}

func boolLabel(value bool) string {
	if value {
		return "on"
	}
	return "off"
}
