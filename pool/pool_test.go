package pool_test

import (
	"context"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Pool", func() {
	It("leases exactly one connection for any number of pool-level subscriptions (scenario 7)", func() {
		ctx, cancel := context.WithTimeout(context.Background(), shortWait)
		defer cancel()

		p := newTestPool()
		defer p.Close()

		Expect(p.LeasedConnectionCount()).To(Equal(0))

		sub, err := p.Subscribe(ctx, [][]byte{[]byte("X")}, func(n, ch, pl []byte) {}, nil, nil)
		Expect(err).NotTo(HaveOccurred())
		_, err = sub.Wait(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.LeasedConnectionCount()).To(Equal(1))

		psub, err := p.PSubscribe(ctx, [][]byte{[]byte("P*")}, func(n, ch, pl []byte) {}, nil, nil)
		Expect(err).NotTo(HaveOccurred())
		_, err = psub.Wait(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.LeasedConnectionCount()).To(Equal(1))

		unsub, err := p.Unsubscribe(nil)
		Expect(err).NotTo(HaveOccurred())
		_, err = unsub.Wait(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.LeasedConnectionCount()).To(Equal(1), "the pattern subscription still holds the lease")

		punsub, err := p.PUnsubscribe(nil)
		Expect(err).NotTo(HaveOccurred())
		_, err = punsub.Wait(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.LeasedConnectionCount()).To(Equal(0))
	})

	It("treats unsubscribe with no active pub-sub lease as a local no-op", func() {
		ctx, cancel := context.WithTimeout(context.Background(), shortWait)
		defer cancel()
		_ = ctx

		p := newTestPool()
		defer p.Close()

		Expect(p.LeasedConnectionCount()).To(Equal(0))
		fut, err := p.Unsubscribe(nil)
		Expect(err).NotTo(HaveOccurred())
		_, err = fut.Wait(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(p.LeasedConnectionCount()).To(Equal(0))
	})

	It("serves ordinary commands through Do without touching the pub-sub lease", func() {
		ctx, cancel := context.WithTimeout(context.Background(), shortWait)
		defer cancel()

		p := newTestPool()
		defer p.Close()

		v, err := p.Do(ctx, "PING")
		Expect(err).NotTo(HaveOccurred())
		Expect(v.Str).To(Equal("PONG"))
		Expect(p.LeasedConnectionCount()).To(Equal(0))
	})
})
