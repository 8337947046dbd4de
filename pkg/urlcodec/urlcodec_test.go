package urlcodec

import (
	"reflect"
	"testing"
)

func TestHTMLEncode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<a>&b", "&lt;a&gt;&amp;b"},
		{"plain", "plain"},
		{`"quoted"`, `"quoted"`},
		{"", ""},
	}
	for _, tt := range tests {
		if got := HTMLEncode(tt.in); got != tt.want {
			t.Errorf("HTMLEncode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestURLEncode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"abc-XYZ_09.~", "abc-XYZ_09.~"},
		{"a b", "a+b"},
		{"a&b=c", "a%26b%3dc"},
		{"\n", "%0a"},
		{"é", "%c3%a9"},
	}
	for _, tt := range tests {
		if got := URLEncode(tt.in); got != tt.want {
			t.Errorf("URLEncode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestURLDecode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plus is space", "a+b", "a b"},
		{"upper hex", "%2F", "/"},
		{"lower hex", "%2f", "/"},
		{"invalid nibble counts as zero", "%g1", "\x01"},
		{"truncated escape dropped", "ab%4", "ab"},
		{"lone percent dropped", "ab%", "ab"},
		{"passthrough", "x.y~z", "x.y~z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := URLDecode(tt.in); got != tt.want {
				t.Errorf("URLDecode(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestURLRoundTripPrintableASCII(t *testing.T) {
	var all []byte
	for c := byte(' '); c <= '~'; c++ {
		all = append(all, c)
	}

	inputs := []string{string(all), "", "hello world", "100% sure & <ok>", "a+b=c"}
	for i := range all {
		inputs = append(inputs, string(all[i:]))
	}

	for _, s := range inputs {
		if got := URLDecode(URLEncode(s)); got != s {
			t.Errorf("URLDecode(URLEncode(%q)) = %q", s, got)
		}
	}
}

func TestDecodeParams(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		decode bool
		want   map[string]string
	}{
		{"two pairs", "a=1&b=2", false, map[string]string{"a": "1", "b": "2"}},
		{"trailing ampersand", "a=1&b=2&", false, map[string]string{"a": "1", "b": "2"}},
		{"empty", "", false, map[string]string{}},
		{"empty value", "a=&b=2", false, map[string]string{"a": "", "b": "2"}},
		{"key without value dropped", "flag&a=1", false, map[string]string{"a": "1"}},
		{"last value wins", "a=1&a=2", false, map[string]string{"a": "2"}},
		{"decoded", "name=John+Smith&q=%3Cb%3E", true, map[string]string{"name": "John Smith", "q": "<b>"}},
		{"raw", "name=John+Smith", false, map[string]string{"name": "John+Smith"}},
		{"equals inside value", "a=b=c", false, map[string]string{"a": "b=c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeParams(tt.in, tt.decode)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DecodeParams(%q, %v) = %v, want %v", tt.in, tt.decode, got, tt.want)
			}
		})
	}
}

func TestDecodeParamsBytes(t *testing.T) {
	got := DecodeParamsBytes([]byte("name=Ann%20Lee"), true)
	if got["name"] != "Ann Lee" {
		t.Errorf("DecodeParamsBytes() name = %q, want %q", got["name"], "Ann Lee")
	}
}
