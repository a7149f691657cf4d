package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/keepsake/pkg/logger"
)

func decode(buf *bytes.Buffer) map[string]any {
	var m map[string]any
	ExpectWithOffset(1, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m)).To(Succeed())
	return m
}

var timeZero time.Time

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

var _ = Describe("New", func() {
	var buf bytes.Buffer

	BeforeEach(func() { buf.Reset() })

	It("writes text at Info by default", func() {
		l := logger.New(logger.WithWriter(&buf))
		l.Debug("poll attempt")
		l.Info("snapshot saved", "bytes", 512)

		Expect(buf.String()).NotTo(ContainSubstring("poll attempt"))
		Expect(buf.String()).To(ContainSubstring("snapshot saved"))
		Expect(buf.String()).To(ContainSubstring("bytes=512"))
	})

	DescribeTable("level selection",
		func(opt logger.Option, debugVisible bool) {
			l := logger.New(logger.WithWriter(&buf), opt)
			l.Debug("waiting for elements")
			if debugVisible {
				Expect(buf.String()).To(ContainSubstring("waiting for elements"))
			} else {
				Expect(buf.String()).To(BeEmpty())
			}
		},
		Entry("debug on", logger.WithDebug(true), true),
		Entry("debug off", logger.WithDebug(false), false),
		Entry("explicit warn", logger.WithLevel(slog.LevelWarn), false),
	)

	It("emits JSON records", func() {
		l := logger.New(logger.WithWriter(&buf), logger.WithJSON(true))
		l.With("component", "restore").WithGroup("report").Info("restored", "missing", 2)

		m := decode(&buf)
		Expect(m["msg"]).To(Equal("restored"))
		Expect(m["component"]).To(Equal("restore"))
		Expect(m["report"]).To(HaveKeyWithValue("missing", BeNumerically("==", 2)))
	})

	It("keeps JSON when pretty is also requested, in either order", func() {
		for _, opts := range [][]logger.Option{
			{logger.WithJSON(true), logger.WithPretty(true)},
			{logger.WithPretty(true), logger.WithJSON(true)},
		} {
			buf.Reset()
			logger.New(append(opts, logger.WithWriter(&buf))...).Info("load finished")
			Expect(decode(&buf)).To(HaveKeyWithValue("msg", "load finished"))
		}
	})

	It("renders pretty output", func() {
		logger.New(logger.WithWriter(&buf), logger.WithPretty(true)).Info("watching diagram")
		Expect(buf.String()).To(ContainSubstring("watching diagram"))
	})

	It("copies records to every writer", func() {
		var other bytes.Buffer
		logger.New(logger.WithWriters(&buf, &other)).Info("autosave queued")
		Expect(buf.String()).To(ContainSubstring("autosave queued"))
		Expect(other.String()).To(ContainSubstring("autosave queued"))
	})

	It("adds the source location on request", func() {
		logger.New(logger.WithWriter(&buf), logger.WithJSON(true), logger.WithSource(true)).Info("located")
		Expect(decode(&buf)).To(HaveKey(slog.SourceKey))
	})
})

var _ = Describe("Nop and OrNop", func() {
	It("discards at every level", func() {
		Expect(logger.Nop().Handler().Enabled(context.Background(), slog.LevelError)).To(BeFalse())
	})

	It("replaces only nil loggers", func() {
		Expect(logger.OrNop(nil).Enabled(context.Background(), slog.LevelError)).To(BeFalse())

		l := logger.New()
		Expect(logger.OrNop(l)).To(BeIdenticalTo(l))
	})
})

var _ = Describe("Multi", func() {
	It("fans records out by each logger's own level", func() {
		var terminal, file bytes.Buffer
		l := logger.Multi(
			logger.New(logger.WithWriter(&terminal)),
			logger.New(logger.WithWriter(&file), logger.WithJSON(true), logger.WithDebug(true)),
			nil,
		)

		l.Debug("readiness poll", "attempt", 3)

		Expect(terminal.String()).To(BeEmpty())
		Expect(decode(&file)).To(HaveKeyWithValue("attempt", BeNumerically("==", 3)))
	})

	It("carries attributes and groups to every handler", func() {
		var a, b bytes.Buffer
		l := logger.Multi(
			logger.New(logger.WithWriter(&a), logger.WithJSON(true)),
			logger.New(logger.WithWriter(&b), logger.WithJSON(true)),
		).With("key", "keepsake").WithGroup("record")

		l.Info("written", "size", 10)

		for _, buf := range []*bytes.Buffer{&a, &b} {
			m := decode(buf)
			Expect(m["key"]).To(Equal("keepsake"))
			Expect(m["record"]).To(HaveKeyWithValue("size", BeNumerically("==", 10)))
		}
	})

	It("still reaches healthy handlers when one fails", func() {
		var ok bytes.Buffer
		l := logger.Multi(
			logger.New(logger.WithWriter(failingWriter{})),
			logger.New(logger.WithWriter(&ok)),
		)

		err := l.Handler().Handle(context.Background(), slog.NewRecord(timeZero, slog.LevelInfo, "saved", 0))
		Expect(err).To(MatchError(ContainSubstring("disk full")))
		Expect(ok.String()).To(ContainSubstring("saved"))
	})
})
