// Package view composes the service list shown to the user from the
// inventory, the favorites order and the search filter.
package view

import (
	"fmt"

	"github.com/dtg01100/systemctl-manager/internal/models"
	"github.com/dtg01100/systemctl-manager/internal/search"
)

// SeparatorLabel is the text of the row between favorites and the rest.
const SeparatorLabel = "──────────"

// FavoriteGlyph prefixes the label of favorite rows.
const FavoriteGlyph = "★"

// Icon names and colors.
const (
	IconStar  = "star"
	IconPlay  = "play"
	IconError = "error"
	IconStop  = "stop"

	ColorYellow = "yellow"
	ColorGreen  = "green"
	ColorRed    = "red"
	ColorGray   = "gray"
)

// Icon is a symbolic icon name plus color.
type Icon struct {
	Name  string
	Color string
}

// Row is one line of the composed list: a ServiceRow or a SeparatorRow.
type Row interface {
	isRow()
}

// ServiceRow is a selectable row for a single service.
type ServiceRow struct {
	Service     models.ServiceRecord
	Favorite    bool
	Label       string
	Description string
	Tooltip     string
	Icon        Icon
}

// SeparatorRow divides favorites from the remaining services. It cannot
// be selected.
type SeparatorRow struct {
	Label string
}

func (ServiceRow) isRow()   {}
func (SeparatorRow) isRow() {}

// Compose builds the render list. Favorites come first in favoritesOrder,
// then a separator if any favorite survived the filter, then the other
// services in inventory order. Favorites missing from services are skipped.
func Compose(services []models.ServiceRecord, favoritesOrder []string, filter search.Filter) []Row {
	favSet := make(map[string]struct{}, len(favoritesOrder))
	for _, name := range favoritesOrder {
		favSet[name] = struct{}{}
	}

	byName := make(map[string]models.ServiceRecord)
	var unfavored []models.ServiceRecord
	for _, svc := range services {
		if !filter.Matches(svc) {
			continue
		}
		if _, ok := favSet[svc.Name]; ok {
			if _, dup := byName[svc.Name]; !dup {
				byName[svc.Name] = svc
			}
			continue
		}
		unfavored = append(unfavored, svc)
	}

	rows := make([]Row, 0, len(byName)+len(unfavored)+1)
	for _, name := range favoritesOrder {
		if svc, ok := byName[name]; ok {
			rows = append(rows, NewServiceRow(svc, true))
			delete(byName, name)
		}
	}
	if len(rows) > 0 {
		rows = append(rows, SeparatorRow{Label: SeparatorLabel})
	}
	for _, svc := range unfavored {
		rows = append(rows, NewServiceRow(svc, false))
	}

	return rows
}

// NewServiceRow derives the display fields for svc.
func NewServiceRow(svc models.ServiceRecord, favorite bool) ServiceRow {
	row := ServiceRow{
		Service:     svc,
		Favorite:    favorite,
		Label:       svc.Name,
		Description: fmt.Sprintf("%s (%s)", svc.Status, svc.EnabledLabel()),
		Tooltip:     fmt.Sprintf("%s\nStatus: %s\nEnabled: %t", svc.Name, svc.Status, svc.Enabled),
		Icon:        StatusIcon(svc.Status),
	}
	if favorite {
		row.Label = FavoriteGlyph + " " + svc.Name
		row.Description += " [Favorite]"
		row.Icon = Icon{Name: IconStar, Color: ColorYellow}
	}
	return row
}

// StatusIcon maps an activation state to its icon.
func StatusIcon(s models.ServiceState) Icon {
	switch s {
	case models.StateActive:
		return Icon{Name: IconPlay, Color: ColorGreen}
	case models.StateFailed:
		return Icon{Name: IconError, Color: ColorRed}
	default:
		return Icon{Name: IconStop, Color: ColorGray}
	}
}

// Services returns the service rows of rows, in order.
func Services(rows []Row) []ServiceRow {
	out := make([]ServiceRow, 0, len(rows))
	for _, r := range rows {
		if sr, ok := r.(ServiceRow); ok {
			out = append(out, sr)
		}
	}
	return out
}
