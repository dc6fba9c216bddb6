package notifier

import "moderbot/internal/telegram"

// Button is one inline control. Exactly one of Data or URL is set.
type Button struct {
	Text string
	Data string
	URL  string
}

// Controls is a grid of buttons, one slice per row.
type Controls [][]Button

// Row is a convenience constructor for a single-row grid.
func Row(buttons ...Button) Controls {
	return Controls{buttons}
}

// View is everything needed to render or re-render a message.
// Text is HTML; a non-empty PhotoID turns Text into the caption.
type View struct {
	Text     string
	PhotoID  string
	Controls Controls
}

// Equal reports whether two views render identically.
func (v View) Equal(other View) bool {
	if v.Text != other.Text || v.PhotoID != other.PhotoID || len(v.Controls) != len(other.Controls) {
		return false
	}
	for i := range v.Controls {
		if len(v.Controls[i]) != len(other.Controls[i]) {
			return false
		}
		for j := range v.Controls[i] {
			if v.Controls[i][j] != other.Controls[i][j] {
				return false
			}
		}
	}
	return true
}

// Text builds a view without photo or controls.
func Text(text string) View {
	return View{Text: text}
}

func (c Controls) markup() *telegram.InlineKeyboardMarkup {
	if len(c) == 0 {
		return nil
	}
	rows := make([][]telegram.InlineKeyboardButton, 0, len(c))
	for _, row := range c {
		buttons := make([]telegram.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, telegram.InlineKeyboardButton{Text: b.Text, CallbackData: b.Data, URL: b.URL})
		}
		rows = append(rows, buttons)
	}
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// editMarkup always returns a keyboard so an edit can clear existing buttons.
func (c Controls) editMarkup() *telegram.InlineKeyboardMarkup {
	if m := c.markup(); m != nil {
		return m
	}
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{}}
}
