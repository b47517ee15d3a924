package memory

import (
	"testing"

	"github.com/xiaoyuanzhu-com/claudechat/models"
)

func TestExtractNamePortuguese(t *testing.T) {
	x := ForLocale("pt")

	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{"meu nome é Ana", "Ana", true},
		{"Olá! Meu nome é José, tudo bem?", "José", true},
		{"MEU NOME EH Carlos", "Carlos", true},
		{"me chamo Beatriz", "Beatriz", true},
		{"eu sou a Júlia", "Júlia", true},
		{"pode me chamar de Zé", "Zé", true},
		{"me chame de Duda por favor", "Duda", true},
		{"quero mudar meu nome para Rafa", "Rafa", true},
		{"trocar nome por Léo", "Léo", true},
		// rename beats a first mention appearing earlier in the text
		{"meu nome é Ana, mas me chame de Aninha", "Aninha", true},
		{"qual é a capital da França?", "", false},
	}

	for _, tt := range tests {
		got, ok := x.ExtractName(tt.text)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ExtractName(%q) = %q, %v; want %q, %v", tt.text, got, ok, tt.want, tt.ok)
		}
	}
}

func TestExtractNameEnglish(t *testing.T) {
	x := ForLocale("en")

	tests := []struct {
		text string
		want string
	}{
		{"Hi, my name is Alice", "Alice"},
		{"please call me Bob", "Bob"},
		{"my name is now Carol", "Carol"},
		{"I'm called Dave", "Dave"},
		{"I am called Erin", "Erin"},
	}
	for _, tt := range tests {
		got, ok := x.ExtractName(tt.text)
		if !ok || got != tt.want {
			t.Errorf("ExtractName(%q) = %q, %v; want %q", tt.text, got, ok, tt.want)
		}
	}

	for _, text := range []string{"I'm tired", "I am happy today"} {
		if got, ok := x.ExtractName(text); ok {
			t.Errorf("ExtractName(%q) = %q, want no name", text, got)
		}
	}
}

func TestExtractPreferences(t *testing.T) {
	x := ForLocale("pt")

	got := x.ExtractPreferences("eu gosto de morangos")
	if got["gosta"] != "morangos" {
		t.Errorf("gosta = %q", got["gosta"])
	}

	got = x.ExtractPreferences("Minha comida favorita é lasanha")
	if got["comida"] != "lasanha" {
		t.Errorf("comida = %q", got["comida"])
	}

	if got := x.ExtractPreferences("adoro praia"); got != nil {
		t.Errorf("expected no trigger, got %v", got)
	}
}

func TestBuildContext(t *testing.T) {
	x := ForLocale("pt")
	name := "Ana"
	info := models.UserInfo{
		UserName:    &name,
		Preferences: map[string]string{"frutas": "morangos", "cor": "azul"},
		Context:     map[string]any{"cidade": "Recife"},
	}

	want := "O nome do usuário é Ana. cidade: Recife. Preferências do usuário: cor: azul, frutas: morangos."
	if got := x.BuildContext(info); got != want {
		t.Errorf("BuildContext() =\n%q\nwant\n%q", got, want)
	}

	if got := x.BuildContext(models.NewUserInfo()); got != "" {
		t.Errorf("empty memory should give empty context, got %q", got)
	}
}

func TestWrapPrompt(t *testing.T) {
	x := ForLocale("pt")
	if got := x.WrapPrompt("", "oi"); got != "oi" {
		t.Errorf("got %q", got)
	}
	if got := x.WrapPrompt("O nome do usuário é Ana.", "oi"); got != "[CONTEXTO: O nome do usuário é Ana.]\n\noi" {
		t.Errorf("got %q", got)
	}
}

func TestApply(t *testing.T) {
	x := ForLocale("pt")
	info := models.NewUserInfo()

	if !Apply(x, &info, "me chamo Ana e gosto de café") {
		t.Fatal("expected memory to change")
	}
	if info.Name() != "Ana" || info.Preferences["gosta"] != "café" {
		t.Errorf("unexpected memory %+v", info)
	}
	if Apply(x, &info, "me chamo Ana") {
		t.Error("same name should not count as a change")
	}
}
