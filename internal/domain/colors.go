package domain

import "strings"

// colorAliases — таблица синонимов логических цветов, включая
// локализованные названия из мобильного клиента.
var colorAliases = map[string][]string{
	"black":  {"black", "черный", "чёрный"},
	"white":  {"white", "белый"},
	"grey":   {"grey", "gray", "серый"},
	"red":    {"red", "красный"},
	"orange": {"orange", "оранжевый"},
	"yellow": {"yellow", "желтый", "жёлтый"},
	"green":  {"green", "зеленый", "зелёный"},
	"blue":   {"blue", "синий", "голубой"},
	"purple": {"purple", "violet", "фиолетовый"},
	"pink":   {"pink", "розовый"},
	"brown":  {"brown", "коричневый"},
	"beige":  {"beige", "бежевый"},
	"gold":   {"gold", "golden", "золотой", "золотистый"},
	"silver": {"silver", "серебряный", "серебристый"},
	"multi":  {"multi", "multicolor", "разноцветный"},
}

// ColorAliases возвращает список алиасов логического цвета.
// Для неизвестного цвета возвращается он сам — точное совпадение.
func ColorAliases(color string) []string {
	color = strings.ToLower(strings.TrimSpace(color))
	if aliases, ok := colorAliases[color]; ok {
		return aliases
	}

	// Обратный поиск: фильтр мог прийти уже локализованным значением.
	for _, aliases := range colorAliases {
		for _, alias := range aliases {
			if alias == color {
				return aliases
			}
		}
	}

	return []string{color}
}
