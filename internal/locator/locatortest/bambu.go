// Package locatortest builds synthetic window trees shaped like the slicer's
// device page, for tests of the locator and everything built on it.
package locatortest

import (
	"github.com/1broseidon/printmon/internal/locator"
	"github.com/1broseidon/printmon/internal/platform"
)

// Well-known handles in the synthetic tree.
const (
	MainWindow      platform.WindowID = 1000
	Body            platform.WindowID = 1100
	RightContainer  platform.WindowID = 1200
	OptionsBar      platform.WindowID = 1211
	Landmark        platform.WindowID = 1212
	ControlPanel    platform.WindowID = 1220
	HotendPanel     platform.WindowID = 1222
	HotbedPanel     platform.WindowID = 1224
	BoxPanel        platform.WindowID = 1226
	BottomContainer platform.WindowID = 1300
	TaskRow         platform.WindowID = 1310
	TaskCell        platform.WindowID = 1311
	TotalTimeCell   platform.WindowID = 1313
	MassCell        platform.WindowID = 1315
	ProgressRow     platform.WindowID = 1320
	ProgressTriple  platform.WindowID = 1322
	PercentCell     platform.WindowID = 1323
	LayerCell       platform.WindowID = 1325
	RemainingCell   platform.WindowID = 1326
	DecorContainer  platform.WindowID = 1400
	SecondWindow    platform.WindowID = 2000
)

// Options tweak the synthetic tree.
type Options struct {
	LandmarkText string
	NoBox        bool
	TwoAnchors   bool
	Task         string
	TotalTime    string
	Mass         string
	Percent      string
	Layer        string
	Remaining    string
	Hotend       string
	Hotbed       string
	Box          string
}

// Defaults mirror a print in progress on a printer with an enclosure sensor.
func Defaults() Options {
	return Options{
		LandmarkText: "打印选项",
		Task:         "Benchy",
		TotalTime:    "1小时30分钟",
		Mass:         "12.34 g",
		Percent:      "57",
		Layer:        "层： 12/80",
		Remaining:    "-45分钟",
		Hotend:       "220/220 °C",
		Hotbed:       "55/55 °C",
		Box:          "28 °C",
	}
}

// Fixture is a built tree plus the handles a correct locate must return.
type Fixture struct {
	Tree     *platform.MemoryTree
	Expected map[locator.Role]platform.WindowID
}

func node(id platform.WindowID, class, text string, x, y, w, h int, children ...*platform.Node) *platform.Node {
	return &platform.Node{
		ID:       id,
		Class:    class,
		Text:     text,
		Rect:     platform.Rect{X: x, Y: y, Width: w, Height: h},
		Children: children,
	}
}

// Bambu builds the tree described by o.
func Bambu(o Options) *Fixture {
	tempPanels := []*platform.Node{
		node(1221, "Static", "温度", 1200, 60, 400, 30),
		node(HotendPanel, "wxWindowNR", o.Hotend, 1200, 100, 400, 30,
			node(1223, "Edit", "220", 1500, 100, 60, 30)),
		node(HotbedPanel, "wxWindowNR", o.Hotbed, 1200, 140, 400, 30,
			node(1225, "Edit", "55", 1500, 140, 60, 30)),
	}
	if !o.NoBox {
		tempPanels = append(tempPanels, node(BoxPanel, "wxWindowNR", o.Box, 1200, 180, 400, 30,
			node(1227, "Edit", "", 1500, 180, 60, 30)))
	}
	// Fan controls have two grandchildren and must not count as temperatures.
	tempPanels = append(tempPanels, node(1228, "wxWindowNR", "风扇", 1200, 220, 400, 30,
		node(1229, "Edit", "", 1500, 220, 60, 30),
		node(1230, "Static", "%", 1560, 220, 20, 30)))

	right := node(RightContainer, "wxWindowNR", "", 1200, 0, 400, 700,
		node(OptionsBar, "wxWindowNR", "", 1200, 0, 400, 40,
			node(Landmark, "wxWindowNR", o.LandmarkText, 1210, 5, 100, 30)),
		node(ControlPanel, "wxWindowNR", "", 1200, 60, 400, 300, tempPanels...),
		node(1240, "wxWindowNR", "", 1200, 400, 400, 300),
	)

	var filler []*platform.Node
	for i := 0; i < 10; i++ {
		filler = append(filler, node(platform.WindowID(1330+i), "Static", "", 10+i*100, 960, 80, 20))
	}
	bottomChildren := append([]*platform.Node{
		node(TaskRow, "wxWindowNR", "", 0, 720, 1200, 40,
			node(TaskCell, "Static", o.Task, 10, 720, 180, 40),
			node(1312, "Static", "总耗时", 200, 720, 180, 40),
			node(TotalTimeCell, "Static", o.TotalTime, 400, 720, 180, 40),
			node(1314, "Static", "耗材", 600, 720, 180, 40),
			node(MassCell, "Static", o.Mass, 800, 720, 180, 40)),
		node(ProgressRow, "wxWindowNR", "", 0, 780, 1200, 80,
			node(1321, "wxWindowNR", "", 0, 780, 1200, 20,
				node(1327, "msctls_progress32", "", 0, 780, 1200, 20)),
			node(ProgressTriple, "wxWindowNR", "", 0, 800, 1200, 60,
				node(PercentCell, "Static", o.Percent, 10, 800, 80, 30),
				node(1324, "Static", "%", 100, 800, 20, 30),
				node(LayerCell, "Static", o.Layer, 200, 800, 150, 30),
				node(RemainingCell, "Static", o.Remaining, 400, 800, 150, 30))),
	}, filler...)
	bottom := node(BottomContainer, "wxWindowNR", "", 0, 700, 1200, 300, bottomChildren...)

	var decor []*platform.Node
	for i := 0; i < 11; i++ {
		decor = append(decor, node(platform.WindowID(1401+i), "Static", "", 10+i*100, 10, 80, 20))
	}
	decorContainer := node(DecorContainer, "wxWindowNR", "", 0, 0, 1200, 100, decor...)
	small := node(1500, "wxWindowNR", "", 0, 990, 100, 10,
		node(1501, "Static", "", 0, 990, 50, 10))

	main := node(MainWindow, "wxWindowNR", "Bambu Studio", 0, 0, 1600, 1000,
		node(Body, "wxWindowNR", "", 0, 0, 1600, 1000, decorContainer, right, bottom, small))

	roots := []*platform.Node{main}
	if o.TwoAnchors {
		roots = append(roots, node(SecondWindow, "wxWindowNR", "Preferences", 100, 100, 400, 300))
	}
	// Unrelated applications share the screen.
	roots = append(roots, node(3000, "Chrome_WidgetWin_1", "browser", 0, 0, 800, 600))

	tree, err := platform.NewMemoryTree(roots...)
	if err != nil {
		panic(err)
	}

	expected := map[locator.Role]platform.WindowID{
		locator.RoleTask:          TaskCell,
		locator.RoleTotalTime:     TotalTimeCell,
		locator.RoleMass:          MassCell,
		locator.RolePercent:       PercentCell,
		locator.RoleLayer:         LayerCell,
		locator.RoleRemainingTime: RemainingCell,
		locator.RoleHotend:        HotendPanel,
		locator.RoleHotbed:        HotbedPanel,
	}
	if !o.NoBox {
		expected[locator.RoleBox] = BoxPanel
	}
	return &Fixture{Tree: tree, Expected: expected}
}
