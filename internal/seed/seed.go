package seed

import "machine-utilization-backend/internal/model"

// defaultTarget is the initial weekly/monthly target ratio in percent.
const defaultTarget = 50

var defaultMachines = []struct {
	group string
	name  string
}{
	{"PIS", "Model 1"},
	{"PIS", "Model 2"},
	{"PIS", "Model 3"},
	{"PIS", "Model 4"},
	{"PIS", "Model 5"},
	{"PIS", "Model 6"},
	{"PIS", "PIS Casting"},
	{"PIS", "Side piece 1"},
	{"PIS", "Side piece 2"},
	{"PIS", "Side piece 3"},
	{"PIS", "Side piece 4"},
	{"PIS", "Side piece 5"},
	{"PIS", "Side piece 6"},
	{"PIS", "Side piece 7"},
	{"PIS", "Side piece 8"},
	{"PIS", "Side piece 9"},
	{"PIS", "Side piece 10"},
	{"PIS", "Side piece 11"},
	{"PIS", "Side piece 12"},
	{"PIS", "Side piece 13"},
	{"PIS", "Side piece 14"},
	{"PIS", "NC Lathe 1"},
	{"PIS", "NC Lathe 2"},
	{"PIS", "NC Lathe 3"},
	{"PIS", "NC Lathe 4"},
	{"PIS", "NC Lathe 5"},
	{"3G", "3G Laser 1"},
	{"3G", "3G Laser 2"},
	{"3G", "3G Laser 3"},
	{"SECTOR", "Turning 1"},
	{"SECTOR", "Turning 2"},
	{"SECTOR", "Turning 3"},
	{"SECTOR", "Turning 8"},
	{"SECTOR", "Machining 3"},
	{"SECTOR", "Machining 4"},
	{"SECTOR", "Machining 9"},
	{"SECTOR", "Machining 10"},
	{"SECTOR (TR)", "Machining 1"},
	{"SECTOR (TR)", "Machining 7"},
	{"SECTOR (TR)", "Machining 8"},
	{"SECTOR (TR)", "Turning 4"},
	{"SECTOR (TR)", "Turning 9"},
	{"SIDE MOLD", "Machining 2"},
	{"SIDE MOLD", "Machining 5"},
	{"SIDE MOLD", "Machining 6"},
	{"SIDE MOLD", "Turning 5"},
	{"SIDE MOLD", "Turning 7"},
	{"SIDE MOLD", "Letter 1"},
	{"SIDE MOLD", "Letter 2"},
	{"SIDE MOLD", "Letter 3"},
	{"SIDE MOLD", "Letter 4"},
	{"SIDE MOLD", "Letter 5"},
	{"SIDE MOLD", "Letter 6"},
	{"SIDE MOLD", "Letter 7"},
	{"SIDE MOLD", "Letter 8"},
	{"SIDE MOLD", "Letter 9"},
	{"SIDE MOLD", "Letter 10"},
	{"SIDE MOLD", "Letter 11"},
	{"BLADE", "Laser 1"},
	{"BLADE", "Laser 2"},
}

// Defaults returns the fixed machine list used by the bulk-seed endpoint.
func Defaults() []model.MachineSetting {
	settings := make([]model.MachineSetting, 0, len(defaultMachines))
	for _, m := range defaultMachines {
		settings = append(settings, model.MachineSetting{
			MachineName:   m.name,
			GroupName:     m.group,
			WeeklyTarget:  defaultTarget,
			MonthlyTarget: defaultTarget,
		})
	}
	return settings
}
