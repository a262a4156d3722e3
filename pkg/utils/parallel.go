package utils

import "sync"

// ParallelMap 并发地把 fn 应用到每个元素上，结果保持输入顺序。
// workers <= 1 或单元素输入时退化为顺序执行。
// 只适用于 fn 为纯函数的场景，fn 之间不得共享可变状态。
func ParallelMap[T any, R any](items []T, workers int, fn func(T) R) []R {
	if len(items) == 0 {
		return nil
	}
	if workers <= 1 || len(items) == 1 {
		results := make([]R, len(items))
		for i, item := range items {
			results[i] = fn(item)
		}
		return results
	}
	if workers > len(items) {
		workers = len(items)
	}

	results := make([]R, len(items))
	indexCh := make(chan int, len(items))
	for i := range items {
		indexCh <- i
	}
	close(indexCh)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range indexCh {
				results[i] = fn(items[i])
			}
		}()
	}
	wg.Wait()
	return results
}
