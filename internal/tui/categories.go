package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/tomato/internal/pomo"
	"github.com/sadopc/tomato/internal/tracker"
)

type categoryForm int

const (
	formNone categoryForm = iota
	formNewCategory
	formEditCategory
	formDeleteCategory
)

type categoriesModel struct {
	tracker *tracker.Tracker
	width   int
	height  int

	categories []pomo.Category
	cursor     int

	formActive bool
	form       *huh.Form
	formType   categoryForm
	editingID  string

	// Form field pointers (survive value copies)
	formName    *string
	formColor   *string
	formConfirm *bool
}

func newCategoriesModel(t *tracker.Tracker) categoriesModel {
	name, color, ok := "", pomo.Palette[0], false
	c := categoriesModel{
		tracker:     t,
		formName:    &name,
		formColor:   &color,
		formConfirm: &ok,
	}
	c.reload()
	return c
}

func (c *categoriesModel) setSize(w, h int) {
	c.width = w
	c.height = h
}

func (c *categoriesModel) reload() {
	c.categories = c.tracker.Categories.List()
	if c.cursor >= len(c.categories) {
		c.cursor = max(0, len(c.categories)-1)
	}
}

func (c categoriesModel) selected() (pomo.Category, bool) {
	if c.cursor < len(c.categories) {
		return c.categories[c.cursor], true
	}
	return pomo.Category{}, false
}

func (c categoriesModel) update(msg tea.Msg) (categoriesModel, tea.Cmd) {
	if c.formActive && c.form != nil {
		return c.updateForm(msg)
	}

	switch msg := msg.(type) {
	case dataChangedMsg:
		c.reload()
		return c, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if c.cursor > 0 {
				c.cursor--
			}
		case key.Matches(msg, keys.Down):
			if c.cursor < len(c.categories)-1 {
				c.cursor++
			}
		case key.Matches(msg, keys.New):
			return c.showCategoryForm(formNewCategory)
		case key.Matches(msg, keys.Edit):
			if _, ok := c.selected(); ok {
				return c.showCategoryForm(formEditCategory)
			}
		case key.Matches(msg, keys.Delete):
			if _, ok := c.selected(); ok {
				return c.showDeleteForm()
			}
		case key.Matches(msg, keys.Enter):
			if cat, ok := c.selected(); ok {
				return c.setDefault(cat)
			}
		}
	}
	return c, nil
}

func colorOptions() []huh.Option[string] {
	opts := make([]huh.Option[string], len(pomo.Palette))
	for i, col := range pomo.Palette {
		opts[i] = huh.NewOption(fmt.Sprintf("%s %s", colorDot(col), col), col)
	}
	return opts
}

func validateName(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("name must not be blank")
	}
	return nil
}

func (c categoriesModel) showCategoryForm(kind categoryForm) (categoriesModel, tea.Cmd) {
	*c.formName = ""
	*c.formColor = pomo.Palette[len(c.categories)%len(pomo.Palette)]
	c.editingID = ""
	if kind == formEditCategory {
		cat, _ := c.selected()
		*c.formName = cat.Name
		*c.formColor = cat.Color
		c.editingID = cat.ID
	}
	c.formType = kind

	c.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Category Name").Validate(validateName).Value(c.formName),
			huh.NewSelect[string]().Title("Color").Options(colorOptions()...).Value(c.formColor),
		),
	).WithShowHelp(true).WithShowErrors(true)

	c.formActive = true
	return c, c.form.Init()
}

func (c categoriesModel) showDeleteForm() (categoriesModel, tea.Cmd) {
	cat, _ := c.selected()
	if c.tracker.Categories.Len() <= 1 {
		return c, func() tea.Msg { return errStatus(&pomo.LastCategoryError{}) }
	}
	*c.formConfirm = false
	c.formType = formDeleteCategory
	c.editingID = cat.ID

	c.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Delete category").
				Description(c.tracker.Categories.DeletePrompt(cat.ID)).
				Affirmative("Delete").
				Negative("Cancel").
				Value(c.formConfirm),
		),
	)

	c.formActive = true
	return c, c.form.Init()
}

func (c categoriesModel) updateForm(msg tea.Msg) (categoriesModel, tea.Cmd) {
	// Check for escape to cancel form
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			c.formActive = false
			c.form = nil
			return c, nil
		}
	}

	form, cmd := c.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		c.form = f
	}

	switch c.form.State {
	case huh.StateCompleted:
		c.formActive = false
		c.form = nil
		return c.submit()
	case huh.StateAborted:
		c.formActive = false
		c.form = nil
		return c, nil
	}

	return c, cmd
}

// submit applies the completed form.
func (c categoriesModel) submit() (categoriesModel, tea.Cmd) {
	var err error
	var status string

	switch c.formType {
	case formNewCategory:
		var cat pomo.Category
		cat, err = c.tracker.Categories.Add(*c.formName, *c.formColor)
		status = fmt.Sprintf("Added %q", cat.Name)
	case formEditCategory:
		err = c.tracker.Categories.Update(c.editingID, *c.formName, *c.formColor)
		status = "Category updated"
	case formDeleteCategory:
		var deleted bool
		deleted, err = c.tracker.Categories.Delete(c.editingID, func(string) bool { return *c.formConfirm })
		if !deleted && err == nil {
			return c, nil
		}
		status = "Category deleted"
	}
	c.formType = formNone

	if err != nil {
		return c, func() tea.Msg { return errStatus(err) }
	}
	c.reload()
	return c, tea.Batch(
		func() tea.Msg { return statusMsg{text: status} },
		func() tea.Msg { return dataChangedMsg{} },
	)
}

func (c categoriesModel) setDefault(cat pomo.Category) (categoriesModel, tea.Cmd) {
	if err := c.tracker.Categories.SetDefault(cat.ID); err != nil {
		return c, func() tea.Msg { return errStatus(err) }
	}
	c.reload()
	return c, tea.Batch(
		func() tea.Msg { return statusMsg{text: fmt.Sprintf("%q is now the default", cat.Name)} },
		func() tea.Msg { return dataChangedMsg{} },
	)
}

func (c categoriesModel) view() string {
	w := c.width - 4

	if c.formActive && c.form != nil {
		title := titleStyle.Render("New Category")
		switch c.formType {
		case formEditCategory:
			title = titleStyle.Render("Edit Category")
		case formDeleteCategory:
			title = titleStyle.Render("Delete Category")
		}
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", c.form.View())
		return panelStyle.Width(w).Render(content)
	}

	title := titleStyle.Render("Categories")

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	header := mutedStyle.Render(fmt.Sprintf("  %-3s %-24s %-10s", "", "Name", "Sessions"))
	rows = append(rows, header)

	for i, cat := range c.categories {
		cursor := "  "
		style := normalItemStyle
		if i == c.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		row := style.Render(fmt.Sprintf("%s%s %-24s %-10d", cursor, colorDot(cat.Color), cat.Name,
			c.tracker.Sessions.CountByCategory(cat.ID)))
		if cat.IsDefault {
			row += " " + badge("default", cat.Color)
		}
		rows = append(rows, row)
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: new  e: edit  d: delete  enter: make default"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
