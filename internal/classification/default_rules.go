package classification

// DefaultRules returns the built-in category table. Order matters: the first
// rule whose keywords match wins, so "valkosipuli" stays a vegetable and
// "kaurajuoma" a dairy substitute.
func DefaultRules() []CategoryRule {
	return []CategoryRule{
		{
			Category:    "Fruits",
			Keywords:    []string{"banaani", "omena", "päärynä", "sitruuna", "klementiini", "appelsiini", "mandariini", "granaatti", "meloni", "rypäle", "kiivi", "avokado", "mango", "persimon"},
			DefaultUnit: "kg",
		},
		{
			Category:    "Vegetables",
			Keywords:    []string{"kurkku", "tomaatti", "porkkana", "sipuli", "peruna", "paprika", "salaatti", "kaali", "lanttu", "punajuuri", "bataat", "inkivääri", "purjo", "chili"},
			DefaultUnit: "kg",
		},
		{
			Category: "Meat",
			Keywords: []string{"jauheliha", "nakki", "makkara", "kinkku", "leike", "filee", "pihvi", "meetvurst", "pekoni", "salami"},
		},
		{
			Category: "Fish",
			Keywords: []string{"lohi", "muikku", "kala", "mäti"},
		},
		{
			Category: "Dairy",
			Keywords: []string{"maito", "kerma", "juusto", "muna", "smetana", "fraiche", "kaurajuoma", "jogurtti"},
		},
		{
			Category: "Beverages",
			Keywords: []string{"kahvi", "kiisseli", "mehu", "tee"},
		},
		{
			Category: "Bakery",
			Keywords: []string{"leipä", "kakku", "rulla", "keksi"},
		},
		{
			Category: "Pantry",
			Keywords: []string{"pasta", "riisi", "nuudeli", "spaghetti"},
		},
		{
			Category: "Snacks",
			Keywords: []string{"sipsi", "lastut", "crackers"},
		},
	}
}
