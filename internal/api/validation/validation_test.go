package validation

import (
	"strings"
	"testing"
)

func validImages(n int) []Image {
	images := make([]Image, n)
	for i := range images {
		images[i] = Image{Filename: "car.jpg", Size: 1024, ContentType: "image/jpeg"}
	}
	return images
}

func validCreate() CarInput {
	return CarInput{
		Title:       "Ford Focus",
		Description: "Надёжный семейный автомобиль",
		Tags:        `{"carType":"Hatchback","company":"Ford","dealer":"North"}`,
		Images:      validImages(2),
	}
}

func TestValidID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"507f1f77bcf86cd799439011", true},
		{"507F1F77BCF86CD799439011", true},
		{"123", false},
		{"", false},
		{"507f1f77bcf86cd79943901g", false},
		{"507f1f77bcf86cd7994390111", false},
	}
	for _, tt := range tests {
		if got := ValidID(tt.id); got != tt.want {
			t.Errorf("ValidID(%q) = %v, ожидалось %v", tt.id, got, tt.want)
		}
	}
}

func TestValidateCarCreate_Valid(t *testing.T) {
	if errs := ValidateCarCreate(validCreate(), 5<<20); len(errs) != 0 {
		t.Errorf("ожидалось отсутствие ошибок, получено %v", errs)
	}
}

func TestValidateCarCreate_ImageCount(t *testing.T) {
	for _, n := range []int{0, 11} {
		in := validCreate()
		in.Images = validImages(n)
		errs := ValidateCarCreate(in, 5<<20)
		if len(errs) != 1 {
			t.Errorf("n=%d: ожидалась 1 ошибка, получено %v", n, errs)
		}
	}
	for _, n := range []int{1, 10} {
		in := validCreate()
		in.Images = validImages(n)
		if errs := ValidateCarCreate(in, 5<<20); len(errs) != 0 {
			t.Errorf("n=%d: ожидалось отсутствие ошибок, получено %v", n, errs)
		}
	}
}

// TestValidateCarCreate_CollectsAll проверяет, что собираются все нарушения.
func TestValidateCarCreate_CollectsAll(t *testing.T) {
	in := CarInput{
		Title:       "  ab  ",
		Description: "short",
		Tags:        `{"dealer":"x"}`,
	}
	errs := ValidateCarCreate(in, 5<<20)

	// title, description, carType, company, количество изображений
	if len(errs) != 5 {
		t.Fatalf("ожидалось 5 ошибок, получено %d: %v", len(errs), errs)
	}
}

func TestValidateCarCreate_Tags(t *testing.T) {
	tests := []struct {
		name string
		tags string
		want string
	}{
		{"пустые", "", "теги обязательны"},
		{"не JSON", "{carType:SUV", "некорректный формат тегов"},
		{"нестроковое значение", `{"carType":"SUV","company":7}`, "некорректный формат тегов"},
		{"без company", `{"carType":"SUV"}`, "тег company обязателен"},
		{"пустой carType", `{"carType":"  ","company":"Kia"}`, "тег carType обязателен"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validCreate()
			in.Tags = tt.tags
			errs := ValidateCarCreate(in, 5<<20)
			if len(errs) != 1 || errs[0] != tt.want {
				t.Errorf("ошибки = %v, ожидалось [%s]", errs, tt.want)
			}
		})
	}
}

func TestValidateCarCreate_ImageChecks(t *testing.T) {
	in := validCreate()
	in.Images = []Image{
		{Filename: "doc.pdf", Size: 10, ContentType: "application/pdf"},
		{Filename: "big.png", Size: 6 << 20, ContentType: "image/png"},
	}
	errs := ValidateCarCreate(in, 5<<20)
	if len(errs) != 2 {
		t.Fatalf("ожидалось 2 ошибки, получено %v", errs)
	}
	if !strings.Contains(errs[0], "doc.pdf") || !strings.Contains(errs[1], "big.png") {
		t.Errorf("ошибки = %v", errs)
	}
}

func TestValidateCarUpdate(t *testing.T) {
	// Пустой запрос допустим: ничего не меняется
	if errs := ValidateCarUpdate(CarInput{}, 5<<20); len(errs) != 0 {
		t.Errorf("пустое обновление: %v", errs)
	}

	// Проверяются только переданные поля
	errs := ValidateCarUpdate(CarInput{Title: "ab"}, 5<<20)
	if len(errs) != 1 {
		t.Errorf("ожидалась 1 ошибка, получено %v", errs)
	}

	errs = ValidateCarUpdate(CarInput{Images: validImages(11)}, 5<<20)
	if len(errs) != 1 {
		t.Errorf("11 изображений: ожидалась 1 ошибка, получено %v", errs)
	}

	errs = ValidateCarUpdate(CarInput{Tags: "[]"}, 5<<20)
	if len(errs) != 1 || errs[0] != "некорректный формат тегов" {
		t.Errorf("ошибки = %v", errs)
	}
}

func TestValidateUserInput(t *testing.T) {
	tests := []struct {
		name   string
		in     UserInput
		signup bool
		want   int
	}{
		{"корректный вход", UserInput{Email: "a@b.co", Password: "secret"}, false, 0},
		{"корректная регистрация", UserInput{Email: "a@b.co", Password: "secret", Name: "Al"}, true, 0},
		{"имя не нужно при входе", UserInput{Email: "a@b.co", Password: "secret"}, false, 0},
		{"короткое имя", UserInput{Email: "a@b.co", Password: "secret", Name: " A "}, true, 1},
		{"email без домена", UserInput{Email: "a@b", Password: "secret"}, false, 1},
		{"email с пробелом", UserInput{Email: "a b@c.d", Password: "secret"}, false, 1},
		{"короткий пароль", UserInput{Email: "a@b.co", Password: "12345"}, false, 1},
		{"всё неверно", UserInput{}, true, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateUserInput(tt.in, tt.signup)
			if len(errs) != tt.want {
				t.Errorf("ошибок = %d (%v), ожидалось %d", len(errs), errs, tt.want)
			}
		})
	}
}
