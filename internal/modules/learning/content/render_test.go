package content

import "testing"

func TestRenderHTML(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "hello", want: "hello"},
		{name: "newlines", in: "a\nb\r\nc", want: "a<br/>b<br/>c"},
		{name: "markup_escaped", in: "<script>alert(1)</script>\nx & y", want: "&lt;script&gt;alert(1)&lt;/script&gt;<br/>x &amp; y"},
		{name: "empty", in: "", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RenderHTML(tc.in); got != tc.want {
				t.Fatalf("RenderHTML(%q)=%q want %q", tc.in, got, tc.want)
			}
		})
	}
}
