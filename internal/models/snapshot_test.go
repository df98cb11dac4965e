package models

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestSnapshot_WriteFailures(t *testing.T) {
	snap := NewSnapshot("run-1", "http://x/docs", []string{"http://x/docs/private"})
	snap.Failed[CategoryPages] = []string{"http://x/docs/b", "http://x/docs/a"}
	snap.Failed[CategoryImages] = []string{"http://x/img/1.png"}

	var buf bytes.Buffer
	if err := snap.WriteFailures(&buf); err != nil {
		t.Fatalf("WriteFailures() error = %v", err)
	}

	want := strings.Join([]string{
		"#sitemirror-state v1",
		"#run run-1",
		"#scope http://x/docs",
		"#ignore http://x/docs/private",
		"@@ pages",
		"http://x/docs/a",
		"http://x/docs/b",
		"@@ js_css",
		"@@ imgs",
		"http://x/img/1.png",
		"",
	}, "\n")
	if buf.String() != want {
		t.Errorf("输出不匹配:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestReadFailures(t *testing.T) {
	t.Run("按标签路由", func(t *testing.T) {
		input := strings.Join([]string{
			"#sitemirror-state v1",
			"#run run-1",
			"#scope http://x/docs",
			"#ignore http://x/docs/private",
			"#ignore http://x/docs/tmp",
			"#future-field whatever",
			"",
			"@@ pages",
			"http://x/docs/a",
			"@@ imgs",
			"http://x/img/1.png",
			"@@ js_css",
			"http://x/static/app.css",
		}, "\n")

		snap, err := ReadFailures(strings.NewReader(input), "failed.log")
		if err != nil {
			t.Fatalf("ReadFailures() error = %v", err)
		}
		if snap.ScopeBase != "http://x/docs" || snap.RunID != "run-1" || snap.Version != 1 {
			t.Errorf("头部解析错误: %+v", snap)
		}
		if !reflect.DeepEqual(snap.Ignore, []string{"http://x/docs/private", "http://x/docs/tmp"}) {
			t.Errorf("Ignore = %v", snap.Ignore)
		}
		if !reflect.DeepEqual(snap.Failed[CategoryPages], []string{"http://x/docs/a"}) {
			t.Errorf("pages = %v", snap.Failed[CategoryPages])
		}
		if !reflect.DeepEqual(snap.Failed[CategoryScripts], []string{"http://x/static/app.css"}) {
			t.Errorf("js_css = %v", snap.Failed[CategoryScripts])
		}
		if !reflect.DeepEqual(snap.Failed[CategoryImages], []string{"http://x/img/1.png"}) {
			t.Errorf("imgs = %v", snap.Failed[CategoryImages])
		}
		if snap.FailedCount() != 3 {
			t.Errorf("FailedCount() = %d, want 3", snap.FailedCount())
		}
	})

	t.Run("写出后可再读取", func(t *testing.T) {
		snap := NewSnapshot("run-2", "http://x/", nil)
		snap.Failed[CategoryScripts] = []string{"http://cdn/app.js"}

		var buf bytes.Buffer
		if err := snap.WriteFailures(&buf); err != nil {
			t.Fatalf("WriteFailures() error = %v", err)
		}
		got, err := ReadFailures(&buf, "failed.log")
		if err != nil {
			t.Fatalf("ReadFailures() error = %v", err)
		}
		if got.ScopeBase != "http://x/" || len(got.Ignore) != 0 {
			t.Errorf("头部不匹配: %+v", got)
		}
		if !reflect.DeepEqual(got.Failed[CategoryScripts], []string{"http://cdn/app.js"}) {
			t.Errorf("js_css = %v", got.Failed[CategoryScripts])
		}
	})
}

func TestReadFailures_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine int
	}{
		{"空文件", "", 0},
		{"缺少格式标识", "#scope http://x/\n@@ pages\n", 1},
		{"版本过新", "#sitemirror-state v9\n#scope http://x/\n", 1},
		{"版本非法", "#sitemirror-state vX\n#scope http://x/\n", 1},
		{"缺少范围", "#sitemirror-state v1\n@@ pages\n", 0},
		{"未知标签", "#sitemirror-state v1\n#scope http://x/\n@@ videos\n", 3},
		{"块之前出现URL", "#sitemirror-state v1\n#scope http://x/\nhttp://x/a\n", 3},
		{"块之后出现头部", "#sitemirror-state v1\n#scope http://x/\n@@ pages\n#ignore http://x/a\n", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadFailures(strings.NewReader(tt.input), "failed.log")
			var se *StateError
			if !errors.As(err, &se) {
				t.Fatalf("期望StateError, 得到: %v", err)
			}
			if se.Line != tt.wantLine {
				t.Errorf("Line = %d, want %d (%v)", se.Line, tt.wantLine, err)
			}
		})
	}
}

func TestReadVisited(t *testing.T) {
	visited, err := ReadVisited(strings.NewReader("http://x/docs/\n\n  http://x/docs/a  \nhttp://x/img/1.png\n"), "visited.log")
	if err != nil {
		t.Fatalf("ReadVisited() error = %v", err)
	}
	want := []string{"http://x/docs/", "http://x/docs/a", "http://x/img/1.png"}
	if !reflect.DeepEqual(visited, want) {
		t.Errorf("visited = %v, want %v", visited, want)
	}

	snap := &Snapshot{Visited: []string{"http://x/b", "http://x/a"}}
	var buf bytes.Buffer
	if err := snap.WriteVisited(&buf); err != nil {
		t.Fatalf("WriteVisited() error = %v", err)
	}
	if buf.String() != "http://x/a\nhttp://x/b\n" {
		t.Errorf("WriteVisited输出 = %q", buf.String())
	}
}

func TestSnapshot_Validate(t *testing.T) {
	tests := []struct {
		name    string
		snap    *Snapshot
		wantErr bool
	}{
		{
			name: "一致的快照",
			snap: &Snapshot{
				ScopeBase: "http://x/docs",
				Ignore:    []string{"http://x/docs/private"},
				Failed: map[Category][]string{
					CategoryPages:  {"http://x/docs/a"},
					CategoryImages: {"http://cdn/img.png"},
				},
			},
		},
		{
			name:    "范围不是URL",
			snap:    &Snapshot{ScopeBase: "/docs"},
			wantErr: true,
		},
		{
			name:    "忽略前缀越界",
			snap:    &Snapshot{ScopeBase: "http://x/docs", Ignore: []string{"http://y/docs"}},
			wantErr: true,
		},
		{
			name: "失败页面越界",
			snap: &Snapshot{
				ScopeBase: "http://x/docs",
				Failed:    map[Category][]string{CategoryPages: {"http://x/other"}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.snap.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
