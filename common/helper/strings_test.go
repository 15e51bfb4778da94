package helper

import "testing"

func TestCtypeDigit(t *testing.T) {
	cases := map[string]bool{
		"123":  true,
		"000":  true,
		"":     false,
		"12a":  false,
		"1.5":  false,
		" 12 ": false,
	}
	for s, want := range cases {
		if got := CtypeDigit(s); got != want {
			t.Fatalf("CtypeDigit(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("secret99")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if hash == "secret99" {
		t.Fatal("hash equals plaintext")
	}
	if !CheckPassword("secret99", hash) {
		t.Fatal("correct password rejected")
	}
	if CheckPassword("wrong", hash) {
		t.Fatal("wrong password accepted")
	}

	// 同一口令两次哈希应产生不同盐值
	hash2, err := HashPassword("secret99")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if hash == hash2 {
		t.Fatal("bcrypt produced identical hashes")
	}
}

func TestIsEmptyString(t *testing.T) {
	if !IsEmptyString("   ") {
		t.Fatal("whitespace-only string not empty")
	}
	if IsEmptyString(" x ") {
		t.Fatal("non-empty string reported empty")
	}
}
