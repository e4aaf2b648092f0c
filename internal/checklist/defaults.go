package checklist

// The three built-in lists ship with preset items keyed by exact name.
const (
	DefaultListLeavingHome = "Перед выходом из дома"
	DefaultListTrip        = "В поездку"
	DefaultListOutdoors    = "На природу"
)

var defaultItemNames = map[string][]string{
	DefaultListLeavingHome: {"Ключи", "Кошелек", "Телефон", "Документы"},
	DefaultListTrip:        {"Паспорт", "Зарядка", "Наушники", "Билеты", "Одежда"},
	DefaultListOutdoors:    {"Коврик", "Вода", "Еда", "Средство от комаров", "Фонарик"},
}

// DefaultItems returns the preset unchecked items for one of the known list
// names, or an empty collection for any other name. Item identifiers are
// freshly generated on every call.
func DefaultItems(listName string, ids IDProvider) ([]Item, error) {
	names, ok := defaultItemNames[listName]
	if !ok {
		return []Item{}, nil
	}
	items := make([]Item, 0, len(names))
	for _, name := range names {
		id, err := ids.NewID()
		if err != nil {
			return nil, err
		}
		items = append(items, Item{ID: id, Name: name})
	}
	return items, nil
}
