package writer

import (
	"strings"
	"time"
)

const rule = "//-----------------------------------------------------------------------------"

// Header is the comment block written at the top of every generated file
type Header struct {
	File        string
	Time        time.Time // zero omits the creation date and time
	Description string
	Author      string
	Tool        string
	VLNV        string
	DesignPath  string
}

func (h Header) String() string {
	var b strings.Builder
	line := func(label, value string) {
		b.WriteString("// ")
		b.WriteString(label)
		b.WriteString(strings.Repeat(" ", 14-len(label)))
		b.WriteString(":")
		if value = strings.TrimRight(value, " \t\r"); value != "" {
			b.WriteString(" " + value)
		}
		b.WriteString("\n")
	}

	b.WriteString(rule + "\n")
	line("File", h.File)
	if !h.Time.IsZero() {
		line("Creation date", h.Time.Format("02.01.2006"))
		line("Creation time", h.Time.Format("15:04:05"))
	}
	desc := strings.Split(strings.TrimRight(h.Description, "\n"), "\n")
	line("Description", desc[0])
	for _, d := range desc[1:] {
		b.WriteString(strings.TrimRight("//                 "+d, " \t\r") + "\n")
	}
	line("Created by", h.Author)
	tool := h.Tool
	if tool == "" {
		tool = "hdlgen"
	}
	line("Tool", tool)
	if h.VLNV != "" {
		b.WriteString("// This file was generated based on component " + h.VLNV + "\n")
	}
	if h.DesignPath != "" {
		b.WriteString("// whose design file is " + h.DesignPath + "\n")
	}
	b.WriteString(rule + "\n")
	return b.String()
}
