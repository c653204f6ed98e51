package dialogue

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Messages holds every user-facing text of the dialogue.
// Gendered pairs are selected by the stored gender token. ConfirmName and the
// ConfirmBirthdate pair are format strings receiving the answer, DocumentCaption
// receives the arcanum number.
type Messages struct {
	GenderPrompt string `yaml:"gender_prompt"`
	MaleLabel    string `yaml:"male_label"`
	FemaleLabel  string `yaml:"female_label"`
	YesLabel     string `yaml:"yes_label"`
	NoLabel      string `yaml:"no_label"`

	AskName     string `yaml:"ask_name"`
	InvalidName string `yaml:"invalid_name"`
	ConfirmName string `yaml:"confirm_name"`
	RetryName   string `yaml:"retry_name"`

	AskBirthdateMale       string `yaml:"ask_birthdate_male"`
	AskBirthdateFemale     string `yaml:"ask_birthdate_female"`
	InvalidBirthdate       string `yaml:"invalid_birthdate"`
	ConfirmBirthdateMale   string `yaml:"confirm_birthdate_male"`
	ConfirmBirthdateFemale string `yaml:"confirm_birthdate_female"`
	RetryBirthdate         string `yaml:"retry_birthdate"`

	DocumentCaption  string `yaml:"document_caption"`
	DocumentMissing  string `yaml:"document_missing"`
	DocumentFailed   string `yaml:"document_failed"`
	ProcessingFailed string `yaml:"processing_failed"`
	InternalError    string `yaml:"internal_error"`

	AskMore   string   `yaml:"ask_more"`
	MoreInfo  []string `yaml:"more_info"`
	Farewell  string   `yaml:"farewell"`
	Unhandled string   `yaml:"unhandled"`
}

// DefaultMessages returns the built-in Russian texts.
func DefaultMessages() Messages {
	return Messages{
		GenderPrompt: "Привет! Ты мужчина или девушка?",
		MaleLabel:    "Мужчина",
		FemaleLabel:  "Девушка",
		YesLabel:     "Да",
		NoLabel:      "Нет",

		AskName:     "Как тебя зовут?",
		InvalidName: "Пожалуйста, введи корректное имя (только буквы, 2-50 символов).",
		ConfirmName: "Твое имя: %s?",
		RetryName:   "Хорошо, попробуем ещё раз. Как тебя зовут?",

		AskBirthdateMale:       "Отлично! Когда ты родился? (ДД.ММ.ГГГГ)",
		AskBirthdateFemale:     "Отлично! Когда ты родилась? (ДД.ММ.ГГГГ)",
		InvalidBirthdate:       "Пожалуйста, введи дату в формате ДД.ММ.ГГГГ.",
		ConfirmBirthdateMale:   "Ты родился %s?",
		ConfirmBirthdateFemale: "Ты родилась %s?",
		RetryBirthdate:         "Хорошо, попробуем ещё раз. Введи дату в формате ДД.ММ.ГГГГ",

		DocumentCaption:  "Ваш аркан дня рождения: %d",
		DocumentMissing:  "Извините, файл с описанием аркана не найден.",
		DocumentFailed:   "Ошибка при отправке файла.",
		ProcessingFailed: "Произошла ошибка при обработке вашей даты.",
		InternalError:    "Что-то пошло не так. Попробуй ещё раз или напиши /start.",

		AskMore:   "Хотите узнать больше о своем аркане?",
		MoreInfo:  []string{promoServices, promoContacts},
		Farewell:  "Если передумаешь, пиши за разбором мне лично - https://t.me/ZAZINA_TATYANA \nХорошего дня! 😊",
		Unhandled: "Я не понимаю. Напиши /start, чтобы начать.",
	}
}

// LoadMessages reads a YAML file overriding the default texts.
// Keys missing from the file keep their default values.
func LoadMessages(path string) (Messages, error) {
	msgs := DefaultMessages()
	if path == "" {
		return msgs, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Messages{}, fmt.Errorf("dialogue: read messages: %w", err)
	}
	if err := yaml.Unmarshal(data, &msgs); err != nil {
		return Messages{}, fmt.Errorf("dialogue: parse messages: %w", err)
	}
	if len(msgs.MoreInfo) == 0 {
		msgs.MoreInfo = DefaultMessages().MoreInfo
	}
	return msgs, nil
}

const promoServices = `🌟 Открой новые горизонты своей жизни с моими разборами!

📅 Персональный прогноз на год
Представь, что ты держишь в руках карту сокровищ, где каждый месяц твоего года раскрывает свои тайны. Этот прогноз — твой компас в океане возможностей.

✨ Что ты получишь:
- Характеристику каждого месяца
- Прогноз по ключевым сферам: деньги, отношения, здоровье
- Персональные рекомендации на каждый день

🌙 Прогноз на месяц
Это не просто предсказание, а практическое руководство к действию.

📆 Узнай энергию каждого дня, чтобы:
- Выбирать идеальное время для важных встреч
- Начинать проекты с максимальной эффективностью
- Восстанавливать силы в нужный момент

🗺 Дорожная карта
Представь панораму своей жизни как осмысленное путешествие души.

✨ Что входит:
- Детальная карта жизненного пути
- Инструмент для квантового скачка в ключевых сферах
- Чёткий план на ближайший год, 5 лет, 10 лет и дальше

🌌 Полное описание звезды
Комплексный анализ твоей жизни, включая глубинные структуры души и кармические задачи.

✨ Узнай:
- Своё предназначение
- Сильные стороны и зоны роста
- Как реализовать свой потенциал

👶 Разбор детской матрицы
Волшебный ключ к пониманию внутреннего мира твоего ребёнка.

✨ Создай среду, где:
- Таланты малыша расцветают
- Сложности превращаются в сильные стороны

🏛 Родовой квадрат
Уникальный инструмент для понимания и трансформации родовых программ.

✨ Осознай:
- Какие программы ты несёшь в себе
- Как они влияют на твою жизнь

🔑 Код успеха
Твой личный ключ к достижению целей.

✨ Активируй:
- Свои сильные стороны и скрытые таланты
- Путь наименьшего сопротивления к успеху

💼 Реализация
Раскрой законы своего личного денежного потока.

✨ Узнай:
- В каких сферах деятельности ты можешь раскрыть свой потенциал
- Как достичь финансового успеха и глубокого удовлетворения от работы`

// Underscores are escaped for Markdown parse mode.
const promoContacts = `Для подробной консультации напишите мне лично https://t.me/ZAZINA\_TATYANA

За прогнозом на каждый день переходи в мой канал 💛 - https://t.me/Zazina\_TD`
