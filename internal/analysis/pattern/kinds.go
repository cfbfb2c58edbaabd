package pattern

import "github.com/skalibog/screener/pkg/models"

// Одиночные свечи
const (
	Doji           models.PatternKind = "doji"
	DragonflyDoji  models.PatternKind = "dragonfly_doji"
	GravestoneDoji models.PatternKind = "gravestone_doji"
	LongLeggedDoji models.PatternKind = "long_legged_doji"
	Hammer         models.PatternKind = "hammer"
	InvertedHammer models.PatternKind = "inverted_hammer"
	HangingMan     models.PatternKind = "hanging_man"
	ShootingStar   models.PatternKind = "shooting_star"
	Marubozu       models.PatternKind = "marubozu"
	SpinningTop    models.PatternKind = "spinning_top"
)

// Две свечи
const (
	BullishEngulfing models.PatternKind = "bullish_engulfing"
	BearishEngulfing models.PatternKind = "bearish_engulfing"
	BullishHarami    models.PatternKind = "bullish_harami"
	BearishHarami    models.PatternKind = "bearish_harami"
	HaramiCross      models.PatternKind = "harami_cross"
	Piercing         models.PatternKind = "piercing"
	DarkCloudCover   models.PatternKind = "dark_cloud_cover"
	TweezerTop       models.PatternKind = "tweezer_top"
	TweezerBottom    models.PatternKind = "tweezer_bottom"
)

// Три свечи
const (
	MorningStar        models.PatternKind = "morning_star"
	EveningStar        models.PatternKind = "evening_star"
	ThreeWhiteSoldiers models.PatternKind = "three_white_soldiers"
	ThreeBlackCrows    models.PatternKind = "three_black_crows"
	ThreeInsideUp      models.PatternKind = "three_inside_up"
	ThreeInsideDown    models.PatternKind = "three_inside_down"
	ThreeOutsideUp     models.PatternKind = "three_outside_up"
	ThreeOutsideDown   models.PatternKind = "three_outside_down"
)

var descriptions = map[models.PatternKind]string{
	Doji:           "Цены открытия и закрытия почти совпадают, нерешительность рынка",
	DragonflyDoji:  "Доджи с длинной нижней тенью и без верхней",
	GravestoneDoji: "Доджи с длинной верхней тенью и без нижней",
	LongLeggedDoji: "Доджи с длинными тенями с обеих сторон",
	Hammer:         "Бычий разворот: маленькое тело сверху и длинная нижняя тень после снижения",
	InvertedHammer: "Бычий разворот: маленькое тело снизу и длинная верхняя тень после снижения",
	HangingMan:     "Медвежий разворот: молот после роста",
	ShootingStar:   "Медвежий разворот: длинная верхняя тень после роста",
	Marubozu:       "Свеча почти без теней, сильное одностороннее движение",
	SpinningTop:    "Маленькое тело и длинные тени, неопределенность",

	BullishEngulfing: "Бычья свеча полностью поглощает тело предыдущей медвежьей",
	BearishEngulfing: "Медвежья свеча полностью поглощает тело предыдущей бычьей",
	BullishHarami:    "Маленькая бычья свеча внутри тела предыдущей медвежьей",
	BearishHarami:    "Маленькая медвежья свеча внутри тела предыдущей бычьей",
	HaramiCross:      "Харами, вторая свеча которого доджи",
	Piercing:         "Открытие ниже минимума и закрытие выше середины тела предыдущей медвежьей свечи",
	DarkCloudCover:   "Открытие выше максимума и закрытие ниже середины тела предыдущей бычьей свечи",
	TweezerTop:       "Две свечи с одинаковыми максимумами, сопротивление",
	TweezerBottom:    "Две свечи с одинаковыми минимумами, поддержка",

	MorningStar:        "Медвежья свеча, маленькое тело и бычья свеча выше середины первой",
	EveningStar:        "Бычья свеча, маленькое тело и медвежья свеча ниже середины первой",
	ThreeWhiteSoldiers: "Три бычьи свечи с растущими открытиями и закрытиями",
	ThreeBlackCrows:    "Три медвежьи свечи с падающими открытиями и закрытиями",
	ThreeInsideUp:      "Медвежья свеча, бычье харами и подтверждающая бычья свеча",
	ThreeInsideDown:    "Бычья свеча, медвежье харами и подтверждающая медвежья свеча",
	ThreeOutsideUp:     "Медвежья свеча, бычье поглощение и подтверждающая бычья свеча",
	ThreeOutsideDown:   "Бычья свеча, медвежье поглощение и подтверждающая медвежья свеча",
}

// Description возвращает описание паттерна
func Description(kind models.PatternKind) string {
	if d, ok := descriptions[kind]; ok {
		return d
	}
	return "Описание недоступно"
}
