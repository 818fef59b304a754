// 文件: cmd/lens/job.go
// 采集 -> 构建 -> 报告 -> 输出/发布

package main

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/tidwall/pretty"
	"go.uber.org/zap"

	"lens.com/pkg/ingest"
	"lens.com/pkg/report"
)

// Job 一次运行
type Job struct {
	Source    ingest.Source
	Builder   *ingest.Builder
	Generator *report.Generator
	Publisher report.Publisher // 可为空
	Out       string           // "-" 或空为标准输出
	Log       *zap.Logger

	stdout io.Writer
}

// Run 执行一次运行
func (j *Job) Run(ctx context.Context) error {
	snapshots, err := j.Source.Collect(ctx)
	if err != nil {
		return errors.Wrap(err, "collect snapshots")
	}

	pop, stats, err := j.Builder.Build(snapshots)
	if err != nil {
		return errors.Wrap(err, "build population")
	}

	r, err := j.Generator.Build(ctx, pop, stats)
	if err != nil {
		return errors.Wrap(err, "build report")
	}

	if err := j.write(r); err != nil {
		return err
	}

	if j.Publisher != nil {
		if err := j.Publisher.Publish(ctx, r); err != nil {
			// 报告已落盘, 发布失败不算运行失败
			j.Log.Warn("publish failed", zap.String("run_id", r.RunID), zap.Error(err))
		}
	}
	return nil
}

func (j *Job) write(r *report.Report) error {
	data, err := report.Encode(r)
	if err != nil {
		return errors.Wrap(err, "encode report")
	}
	data = pretty.Pretty(data)

	if j.Out == "" || j.Out == "-" {
		w := j.stdout
		if w == nil {
			w = os.Stdout
		}
		_, err := w.Write(data)
		return errors.Wrap(err, "write report")
	}

	if err := os.WriteFile(j.Out, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", j.Out)
	}
	j.Log.Info("report written", zap.String("path", j.Out), zap.String("run_id", r.RunID))
	return nil
}
