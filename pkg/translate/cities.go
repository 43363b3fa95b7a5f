package translate

// Cities covers every city the NHK weekly map shows
var Cities = map[string]string{
	"東京":  "Токио",
	"長野":  "Нагано",
	"新潟":  "Ниигата",
	"小笠原": "Огасавара",
	"大阪":  "Осака",
	"名古屋": "Нагоя",
	"金沢":  "Канадзава",
	"広島":  "Хиросима",
	"松江":  "Мацуэ",
	"福岡":  "Фукуока",
	"鹿児島": "Кагосима",
	"那覇":  "Наха",
	"仙台":  "Сэндай",
	"秋田":  "Акита",
	"札幌":  "Саппоро",
	"釧路":  "Кусиро",
	"高知":  "Коти",
}
