package index

// SynonymTable maps a query term to domain synonyms unioned into the query
// before scoring. Expansion improves recall for paraphrased questions
// without touching index-build cost.
type SynonymTable map[string][]string

// DefaultSynonyms covers the vocabulary partners actually use when asking
// about listings, terms and promotions.
func DefaultSynonyms() SynonymTable {
	return SynonymTable{
		"цена":         {"стоимость", "прайс"},
		"стоимость":    {"цена", "прайс"},
		"прайс":        {"цена", "стоимость"},
		"квартира":     {"жилье", "недвижимость", "объект"},
		"жилье":        {"квартира", "недвижимость"},
		"скидка":       {"акция", "дисконт"},
		"акция":        {"скидка", "промо"},
		"промо":        {"акция", "скидка"},
		"ипотека":      {"кредит", "рассрочка"},
		"застройщик":   {"девелопер"},
		"девелопер":    {"застройщик"},
		"комиссия":     {"вознаграждение", "процент"},
		"бронь":        {"бронирование"},
		"бронирование": {"бронь"},
		"документы":    {"договор", "регламент"},
	}
}

// AddGroup registers a group of mutually substitutable terms: each member
// gains every other member as a synonym. Used to extend the built-in table
// from configuration.
func (t SynonymTable) AddGroup(terms []string) {
	for _, term := range terms {
		for _, other := range terms {
			if other == term {
				continue
			}
			t[term] = append(t[term], other)
		}
	}
}

// Expand returns the query tokens unioned with the synonyms of every
// matched term. Order is preserved, duplicates removed.
func (t SynonymTable) Expand(tokens []string) []string {
	if len(t) == 0 {
		return tokens
	}

	seen := make(map[string]bool, len(tokens))
	expanded := make([]string, 0, len(tokens))

	add := func(tok string) {
		if !seen[tok] {
			seen[tok] = true
			expanded = append(expanded, tok)
		}
	}

	for _, tok := range tokens {
		add(tok)
		for _, syn := range t[tok] {
			add(syn)
		}
	}

	return expanded
}
